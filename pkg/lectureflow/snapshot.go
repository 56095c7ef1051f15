package lectureflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is the current snapshot wire version. Loading a snapshot
// with a different version fails with ErrSnapshotVersionMismatch.
const SnapshotVersion = 1

// threadSnapshot is the wire form of one thread.
type threadSnapshot struct {
	ID      string       `json:"id"`
	Kind    ThreadKind   `json:"kind"`
	Status  ThreadStatus `json:"status"`
	Origin  *Origin      `json:"origin,omitempty"`
	Topic   string       `json:"topic"`
	Outline []string     `json:"outline,omitempty"`
	Slides  []*Slide     `json:"slides"`
}

// graphSnapshot is the wire form of a full thread graph.
type graphSnapshot struct {
	Version        int              `json:"version"`
	SessionID      string           `json:"session_id"`
	Topic          string           `json:"topic"`
	KnowledgeLevel string           `json:"knowledge_level"`
	CreatedAt      time.Time        `json:"created_at"`
	Main           threadSnapshot   `json:"main"`
	Detours        []threadSnapshot `json:"detours,omitempty"`
	Cursor         Cursor           `json:"cursor"`
}

func snapshotThread(t *Thread) threadSnapshot {
	return threadSnapshot{
		ID:      t.id,
		Kind:    t.kind,
		Status:  t.status,
		Origin:  t.Origin(),
		Topic:   t.topic,
		Outline: t.Outline(),
		Slides:  append([]*Slide(nil), t.slides...),
	}
}

func restoreThread(ts threadSnapshot) *Thread {
	return &Thread{
		id:      ts.ID,
		kind:    ts.Kind,
		status:  ts.Status,
		origin:  ts.Origin,
		topic:   ts.Topic,
		outline: ts.Outline,
		slides:  ts.Slides,
	}
}

// Snapshot serializes the full graph state to versioned JSON, suitable for
// a store.Store. The snapshot is a complete record: threads, slides,
// outlines, detour origins, and the cursor.
func (g *ThreadGraph) Snapshot() ([]byte, error) {
	snap := graphSnapshot{
		Version:        SnapshotVersion,
		SessionID:      g.sessionID,
		Topic:          g.topic,
		KnowledgeLevel: g.knowledgeLevel,
		CreatedAt:      g.createdAt,
		Main:           snapshotThread(g.main),
		Cursor:         g.cursor,
	}
	for _, id := range g.DetourIDs() {
		snap.Detours = append(snap.Detours, snapshotThread(g.detours[id]))
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot session %s: %w", g.sessionID, err)
	}
	return data, nil
}

// RestoreThreadGraph rebuilds a graph from a snapshot produced by
// Snapshot. The restored graph is verified against the structural
// invariants before being returned.
func RestoreThreadGraph(data []byte) (*ThreadGraph, error) {
	var snap graphSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("restore snapshot: version %d: %w", snap.Version, ErrSnapshotVersionMismatch)
	}

	g := &ThreadGraph{
		sessionID:      snap.SessionID,
		topic:          snap.Topic,
		knowledgeLevel: snap.KnowledgeLevel,
		createdAt:      snap.CreatedAt,
		main:           restoreThread(snap.Main),
		detours:        make(map[string]*Thread, len(snap.Detours)),
		cursor:         snap.Cursor,
	}
	if g.knowledgeLevel == "" {
		g.knowledgeLevel = DefaultKnowledgeLevel
	}
	for _, ts := range snap.Detours {
		g.detours[ts.ID] = restoreThread(ts)
	}

	if err := g.checkInvariants(); err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	return g, nil
}
