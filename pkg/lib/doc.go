// Package lib provides a Go SDK for running ferry batch uploads
// programmatically.
//
// This package allows applications to upload file batches, test connections
// and manage connection profiles without shelling out to the ferry CLI
// binary.
//
// # Quick Start
//
// Create a client, start a batch and consume its event stream:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	run, err := client.Upload(ctx, lib.BatchOpts{
//	    Profile: "staging",
//	    Files:   []string{"a.bin", "b.bin"},
//	    Policy:  lib.Policy{InterFileDelaySeconds: 5},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for ev := range run.Events() {
//	    fmt.Println(ev.Kind, ev.Message)
//	}
//
// A run emits log lines, countdown ticks and checkpoint requests, and always
// ends with a [EventRunFinished] event. Answer a pending checkpoint with
// [Run.AnswerCheckpoint] and stop a run at any time with [Run.Cancel].
//
// # Profiles
//
// Connection profiles are stored in a SQLite database (~/.ferry/ferry.db by
// default). [Client.SaveProfile] creates or updates a profile, and batches
// can reference profiles by name or fall back to the default one.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist.
//   - [ErrAlreadyExists]: Resource with the same name already exists.
//   - [ErrNotValid]: Invalid input or configuration.
//
// # Testing
//
// Use a temporary database path and a custom [Dialer] to write tests without
// a real SFTP server:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    DBPath: filepath.Join(t.TempDir(), "test.db"),
//	    Dialer: fakeDialer,
//	})
//	defer client.Close()
package lib
