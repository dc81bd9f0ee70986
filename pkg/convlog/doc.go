/*
Package convlog records crowd-sourced dialogue as per-conversation logs.

# Overview

Workers receive a context, produce a response, and the response is scored
later by someone else. Those three steps arrive as notifications on three
channels:

	ChannelInput    contexts shown to the worker
	ChannelOutput   the worker's response
	ChannelScoring  a score for an earlier response, keyed by context id

Listeners subscribe to a bus and react to notifications. The listener
package provides two of them: a ResponseLogger that writes every input and
output as it arrives, and a ScoringLogger that holds each output until its
score shows up and then writes one combined line:

	[Input] --> What's your favourite film?
	[Output] --> [0.9] Probably Alien.

# Basic Usage

	store, _ := logstore.NewFileStore("./conversations")
	unit, err := listener.NewUnit(listener.Description{
	    Named: map[string]listener.Kind{"database": listener.KindScoringLogger},
	}, listener.DefaultFactories(), listener.Deps{Store: store})
	if err != nil {
	    log.Fatal(err)
	}

	b := bus.NewBus(bus.DefaultConfig)
	defer b.Close()
	unit.Subscribe(b)

	b.Publish(ctx, convlog.Notification{
	    Channel:    convlog.ChannelOutput,
	    Utterances: []convlog.Utterance{{ConversationID: "conv1", ContextID: "c1", Data: convlog.Wrapped("hello")}},
	})
	b.Publish(ctx, convlog.Notification{
	    Channel:    convlog.ChannelScoring,
	    Utterances: []convlog.Utterance{{ConversationID: "conv1", ContextID: "c1", Data: convlog.Text("0.9")}},
	})

# Subpackages

  - bus: in-process delivery of notifications to listeners
  - listener: logging listeners and the composition unit
  - logstore: append-only conversation log backends
  - dispatch: context request queue for worker-facing consumers
  - config: file and environment configuration
  - observability: logging, metrics and tracing helpers
*/
package convlog
