/*
Package dsl builds skein scripts from Go code.

The builder emits ordinary script text, so a story built here behaves
exactly like the same story written by hand:

	b := dsl.New()
	b.Text("Hello")
	b.Choice("A").Go("a")
	b.Choice("B").Go("b")
	b.Knot("a").Text("Got A")
	b.Knot("b").Text("Got B")

	story, err := b.Build()
*/
package dsl
