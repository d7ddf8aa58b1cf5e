package ecs

import "testing"

type renderCopy struct{ V int }

func TestExtractSwapCopiesMainIntoRenderThenRestoresMain(t *testing.T) {
	main := NewWorld()
	render := NewWorld()
	scratch := NewWorld()

	tC := RegisterComponent[renderCopy](main)
	rC := RegisterComponent[renderCopy](render)

	e, err := main.Spawn(tC.Value(renderCopy{V: 7}))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	x := NewExtractor(main, render, scratch)
	err = x.Extract(func(renderWorld *World, mainWorld *World) error {
		v := tC.GetFromEntityReadOnly(e)
		if v == nil {
			t.Fatalf("expected to read the spawned component through the extracted main world")
		}
		return renderWorld.InsertResource(rC.Value(renderCopy{V: v.V}))
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if x.Main() != main {
		t.Fatalf("expected the main world restored to its original pointer after reverse swap")
	}
	got := tC.GetFromEntityReadOnly(e)
	if got == nil || got.V != 7 {
		t.Fatalf("main world entity should survive the round trip unchanged, got %+v", got)
	}
	if !render.HasResource(rC.Component) {
		t.Fatalf("expected render world to carry the copied resource after extraction")
	}
	renderVal := rC.GetFromEntityReadOnly(ResourceEntity)
	if renderVal == nil || renderVal.V != 7 {
		t.Fatalf("unexpected render-world resource value: %+v", renderVal)
	}
	if _, ok := x.MainWorldResource(); ok {
		t.Fatalf("MainWorldRef resource should have been removed from the render world after the reverse swap")
	}
}

func TestExtractMainIsScratchDuringCall(t *testing.T) {
	main := NewWorld()
	render := NewWorld()
	scratch := NewWorld()
	x := NewExtractor(main, render, scratch)

	var sawScratch bool
	err := x.Extract(func(renderWorld *World, mainWorld *World) error {
		sawScratch = x.Main() == scratch
		return nil
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !sawScratch {
		t.Fatalf("expected Main() to return the scratch placeholder during extraction")
	}
	if x.Main() != main {
		t.Fatalf("expected Main() to return the real main world after extraction")
	}
}
