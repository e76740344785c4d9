package broadcast

// Result summarizes one fanout
type Result struct {
	Sent    int
	Dropped []*Peer
}

// Fanout offers frame to every peer without blocking. A peer that cannot
// take the frame is kicked with CloseSlowConsumer.
func Fanout(peers []*Peer, frame []byte) Result {
	var res Result
	for _, p := range peers {
		if Send(p, frame) {
			res.Sent++
			continue
		}
		res.Dropped = append(res.Dropped, p)
	}
	return res
}

// Send delivers frame to a single peer with the same drop policy as Fanout
func Send(p *Peer, frame []byte) bool {
	if p.TrySend(frame) {
		return true
	}
	p.Kick(CloseSlowConsumer, "outbound queue full")
	return false
}
