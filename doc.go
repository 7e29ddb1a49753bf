/*
Package skein compiles line-oriented interactive fiction scripts into story
graphs and plays them.

A script is made of knots (`== name ==`), stitches (`= name`), plain text,
choices (`*` one-shot, `+` sticky), gathers (`-`), diverts (`-> name`),
inline conditions (`{not name}`), glue (`<>`), tags (`#`), comments and
`INCLUDE` lines. Compilation runs strictly forward: lines are lexed, merged
into paragraphs, grouped per knot and stitch, and turned into a flat graph
whose diverts and gathers are already resolved.

# Usage

	story, err := skein.ParseFile("intro.ink")
	if err != nil {
		log.Fatal(err)
	}

	eng := skein.NewEngine(story)
	if err := eng.Start(); err != nil {
		log.Fatal(err)
	}

	for !eng.Complete() {
		for i, c := range eng.AvailableChoices() {
			fmt.Printf("%d: %s\n", i+1, c.Label())
		}
		// read the player's pick...
		if _, err := eng.Choose(0); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Println(strings.Join(eng.History(), "\n"))

A Story is immutable and can back many engines. Engines are single-caller;
use pkg/session to serve concurrent players with persisted snapshots.
*/
package skein
