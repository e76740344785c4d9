package room

import (
	"context"
	"errors"

	"github.com/aaronzipp/retroboard/internal/broadcast"
	"github.com/aaronzipp/retroboard/internal/metrics"
	"github.com/aaronzipp/retroboard/internal/render"
	"github.com/aaronzipp/retroboard/internal/retro"
)

// JoinResult tells a connection who it is in the room
type JoinResult struct {
	ParticipantID  string
	Name           string
	Generation     uint64
	IsReconnection bool
	IsCreator      bool
}

// Join attaches peer as participant requestedID, or as a new participant,
// superseding any older connection of that participant
func (r *Room) Join(ctx context.Context, requestedID string, peer *broadcast.Peer) (JoinResult, error) {
	res, err := call(ctx, r, func() JoinResult { return r.join(requestedID, peer) })
	if err != nil && !errors.Is(err, ErrRoomClosed) {
		// Undo the join once it runs, in case it was still queued
		go func() { _ = r.do(context.Background(), func() { r.abandon(peer) }) }()
	}
	return res, err
}

func (r *Room) join(requestedID string, peer *broadcast.Peer) JoinResult {
	att := r.state.Attach(requestedID)
	if old, ok := r.subs[att.ParticipantID]; ok && old.peer != peer {
		old.peer.Kick(broadcast.CloseSuperseded, "superseded by a newer connection")
		r.log.Debug().Str("participant", att.ParticipantID).Str("conn", old.peer.ID).Msg("connection superseded")
	}
	r.subs[att.ParticipantID] = &subscriber{peer: peer, generation: att.Generation}
	r.setConnections(len(r.subs))

	res := JoinResult{
		ParticipantID:  att.ParticipantID,
		Name:           att.Name,
		Generation:     att.Generation,
		IsReconnection: att.IsReconnection,
		IsCreator:      r.state.CreatorID() == att.ParticipantID,
	}
	r.log.Info().
		Str("participant", res.ParticipantID).
		Str("conn", peer.ID).
		Bool("reconnect", res.IsReconnection).
		Bool("creator", res.IsCreator).
		Msg("participant joined")

	r.sendTo(att.ParticipantID, retro.UserJoined{
		UserID:         res.ParticipantID,
		Name:           res.Name,
		IsCreator:      res.IsCreator,
		IsReconnection: res.IsReconnection,
		Snapshot:       r.state.Snapshot(),
	})
	r.broadcastParticipants()
	if att.CreatorChanged {
		r.broadcast(retro.CreatorAssigned{CreatorID: r.state.CreatorID(), PreviousCreatorID: att.PreviousCreatorID})
	}
	return res
}

// Leave detaches the connection of the given generation, ignoring superseded ones
func (r *Room) Leave(ctx context.Context, participantID string, generation uint64) error {
	return r.do(ctx, func() { r.leave(participantID, generation) })
}

func (r *Room) leave(participantID string, generation uint64) {
	if sub, ok := r.subs[participantID]; ok && sub.generation == generation {
		delete(r.subs, participantID)
		r.setConnections(len(r.subs))
	}
	det := r.state.Detach(participantID, generation)
	if det.Stale {
		return
	}
	r.log.Info().Str("participant", participantID).Msg("participant left")
	r.broadcastParticipants()
	if det.CreatorChanged {
		r.broadcast(retro.CreatorAssigned{CreatorID: r.state.CreatorID(), PreviousCreatorID: det.PreviousCreatorID})
	}
}

// abandon detaches whichever participant peer was bound to
func (r *Room) abandon(peer *broadcast.Peer) {
	for id, sub := range r.subs {
		if sub.peer == peer {
			r.leave(id, sub.generation)
			return
		}
	}
}

// Submit queues msg from the given connection generation for the room to apply
func (r *Room) Submit(ctx context.Context, participantID string, generation uint64, msg retro.Message) error {
	return r.do(ctx, func() { r.apply(participantID, generation, msg) })
}

func (r *Room) apply(participantID string, generation uint64, msg retro.Message) {
	kind := string(msg.Kind())
	if current, ok := r.state.Generation(participantID); !ok || current != generation {
		metrics.RecordMessage(kind, "stale")
		r.log.Debug().Str("participant", participantID).Str("type", kind).Msg("message from superseded connection dropped")
		return
	}

	ev, err := r.state.Apply(participantID, msg)
	switch {
	case err == nil:
		metrics.RecordMessage(kind, "applied")
		r.broadcast(ev)
	case errors.Is(err, retro.ErrUnknownType):
		metrics.RecordMessage(kind, "ignored")
	default:
		metrics.RecordMessage(kind, "rejected")
		r.log.Debug().Err(err).Str("participant", participantID).Str("type", kind).Msg("message rejected")
		r.sendTo(participantID, retro.StateSync{Reason: err.Error(), Snapshot: r.state.Snapshot()})
	}
}

func (r *Room) broadcastParticipants() {
	r.broadcast(retro.ParticipantsUpdate{
		CreatorID:    r.state.CreatorID(),
		Participants: r.state.Participants(),
	})
}

// broadcast is the single fanout point for room events
func (r *Room) broadcast(ev retro.Event) {
	frame, err := render.Frame(ev, r.state.Version())
	if err != nil {
		r.log.Error().Err(err).Msg("encoding broadcast")
		return
	}
	peers := make([]*broadcast.Peer, 0, len(r.subs))
	for _, sub := range r.subs {
		peers = append(peers, sub.peer)
	}
	res := broadcast.Fanout(peers, frame)
	if len(res.Dropped) > 0 {
		metrics.FramesDropped(len(res.Dropped))
		r.dropSlow(res.Dropped)
	}
}

func (r *Room) sendTo(participantID string, ev retro.Event) {
	sub, ok := r.subs[participantID]
	if !ok {
		return
	}
	frame, err := render.Frame(ev, r.state.Version())
	if err != nil {
		r.log.Error().Err(err).Msg("encoding frame")
		return
	}
	if !broadcast.Send(sub.peer, frame) {
		metrics.FramesDropped(1)
		r.dropSlow([]*broadcast.Peer{sub.peer})
	}
}

// dropSlow detaches participants whose peers could not keep up. Each drop
// may broadcast again, and each removes one subscriber, so this terminates.
func (r *Room) dropSlow(peers []*broadcast.Peer) {
	for _, p := range peers {
		for id, sub := range r.subs {
			if sub.peer == p {
				r.log.Warn().Str("participant", id).Str("conn", p.ID).Msg("dropping slow connection")
				r.leave(id, sub.generation)
				break
			}
		}
	}
}
