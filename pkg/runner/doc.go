/*
Package runner implements the interactive loop that plays a story.

It bridges the engine and the outside world: content goes out through a
pluggable IOHandler, reader commands come back in, and every step can be
saved to a ports.SnapshotStore so a run resumes where it stopped.

# Key Components

  - Runner: the loop. Reads numbers, "reset" and "quit".
  - TextHandler: numbered choices on a terminal.
  - JSONHandler: one JSON frame per line for scripted hosts.
  - SessionManager: load-or-start and save around a session id.

# Usage

	eng, err := skein.New(script)
	if err != nil {
		log.Fatal(err)
	}

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithStore(store),
		runner.WithSessionID("reader-1"),
	)
	if err := r.Run(ctx, eng); err != nil {
		log.Fatal(err)
	}
*/
package runner
