/*
Package lectureflow provides a branching-lecture session engine for
LLM-generated presentations.

# Overview

lectureflow models an interactive lecture as a graph of threads. The main
thread is the linear lecture the session was started for; detour threads
branch off it for deep dives, worked examples, quizzes, references, and
concept maps. A single cursor marks the slide the user is looking at, and
every slide carries the set of actions the user may take from it.

Slides are generated on demand through a pluggable gateway (Anthropic,
Gemini, or a scripted mock for tests). Every operation is
validate-then-commit: a failed or cancelled generation leaves the session
exactly as it was.

# Basic Usage

Create a service around a gateway client, start a session, and perform
actions:

	client, err := gateway.NewAnthropic("") // uses ANTHROPIC_API_KEY
	if err != nil {
	    log.Fatal(err)
	}

	svc := lectureflow.New(client)
	state, err := svc.StartSession(ctx, "Rust Ownership")
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(state.CurrentSlide.Content.Title)

	state, err = svc.PerformAction(ctx, state.SessionID,
	    lectureflow.ActionAdvance, nil)

Every action returns the new SessionState: the id, the active thread
kind, the current slide, and the position within the thread.

# Detours

Branching actions (deep_dive, show_example, quiz_me, show_references,
show_concept_map) suspend the active thread and open a detour. Detours
remember where they were spawned; return_to_main resumes the parent one
slide past that point, generating it if the lecture hadn't reached it
yet. Suspended detours stay reachable by id via resume_detour, and
repeated branches from the same slide open distinct detours.

	state, _ = svc.PerformAction(ctx, id, lectureflow.ActionDeepDive,
	    map[string]any{"concept": "borrow checker"})
	// ... explore the detour ...
	state, _ = svc.PerformAction(ctx, id, lectureflow.ActionReturnToMain, nil)

# Concurrency

A session runs one operation at a time. A second call while one is in
flight fails fast with ErrSessionBusy; nothing queues. Cancelling a
session's in-flight operation makes its eventual gateway completion land
as ErrStaleOperation instead of being committed.

# Persistence

With a store configured, every successful operation snapshots the full
graph. A service in a fresh process transparently restores sessions from
the store:

	st, _ := store.NewSQLiteStore("lectures.db")
	svc := lectureflow.New(client, lectureflow.WithStore(st))

# Observability

Structured logging uses slog; metrics and tracing use OpenTelemetry and
are no-ops unless enabled:

	svc := lectureflow.New(client,
	    lectureflow.WithLogger(logger),
	    lectureflow.WithMetricsRecorder(observability.NewMetricsRecorder()),
	    lectureflow.WithSpanManager(observability.NewSpanManager()),
	)
*/
package lectureflow
