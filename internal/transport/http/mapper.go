package http

import (
	"encoding/json"

	"github.com/vovakirdan/wiremap-server/internal/core"
	"github.com/vovakirdan/wiremap-server/internal/presence"
	"github.com/vovakirdan/wiremap-server/internal/proto"
)

func inboundToUpdate(inbound proto.Inbound) (presence.Update, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeSendLocation:
		if len(inbound.Data) == 0 {
			return presence.Update{}, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "data is required"}
		}
		var loc proto.LocationData
		if err := json.Unmarshal(inbound.Data, &loc); err != nil {
			return presence.Update{}, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid location payload"}
		}
		if loc.Lat == nil || loc.Lng == nil {
			return presence.Update{}, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "lat and lng are required"}
		}
		return presence.Update{
			ID:        loc.ID,
			Name:      loc.Name,
			Lat:       *loc.Lat,
			Lng:       *loc.Lng,
			AvatarRef: loc.AvatarRef,
		}, nil
	default:
		return presence.Update{}, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func recordToProto(rec presence.Record) proto.Record {
	return proto.Record{
		ID:           rec.ID,
		Name:         rec.Name,
		Lat:          rec.Lat,
		Lng:          rec.Lng,
		AvatarRef:    rec.AvatarRef,
		Timestamp:    rec.UpdatedAt.UnixMilli(),
		ConnectionID: rec.ConnID,
	}
}

func snapshotToProto(snap map[string]presence.Record) map[string]proto.Record {
	out := make(map[string]proto.Record, len(snap))
	for id, rec := range snap {
		out[id] = recordToProto(rec)
	}
	return out
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventSnapshot:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventCurrentUsers,
			Data:  snapshotToProto(event.Snapshot),
		}
	case core.EventLocation:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReceiveLocation,
			Data:  recordToProto(event.Record),
		}
	case core.EventUserDisconnected:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserDisconnected,
			Data:  event.ParticipantID,
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
