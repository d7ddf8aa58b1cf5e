package ecs

import "fmt"

// MainWorldRef is the resource type installed on the render world during
// extraction: a read-only wrapper around the main world's real pointer.
//
// Grounded on original_source's weaver-renderer extract.rs, whose
// render-side systems fetch a MainWorld resource to read from the main
// world without holding a long-lived borrow across frames.
type MainWorldRef struct {
	World *World
}

// Extractor owns a main/render world pair and performs the five-step
// extract swap spec.md §4.6 describes, once per frame: the real main
// world is swapped out for a scratch placeholder, installed as a
// read-only resource on the render world for the duration of the
// Extract stage, then swapped back.
//
// Grounded on weaver-renderer's extract.rs MainWorld/ScratchMainWorld
// resource-swap convention: ownership moves across the swap rather than
// being borrowed, so no reference into the main world survives past a
// single Extract call.
type Extractor struct {
	main    *World
	render  *World
	scratch *World

	mainWorldRef ComponentHandle[MainWorldRef]
	active       bool
}

// NewExtractor binds main and render worlds together. scratch stands in
// for main for the duration of each Extract call; it should not be used
// for anything else.
func NewExtractor(main, render, scratch *World) *Extractor {
	return &Extractor{
		main:         main,
		render:       render,
		scratch:      scratch,
		mainWorldRef: RegisterComponent[MainWorldRef](render),
	}
}

// Main returns whichever world currently occupies the main slot: the
// real main world ordinarily, or the scratch placeholder while an
// Extract call is in progress — so a caller holding only an *Extractor*
// can never observe a half-swapped state.
func (x *Extractor) Main() *World { return x.main }

// Render returns the render world.
func (x *Extractor) Render() *World { return x.render }

// Extract runs the five-step swap around fn. fn receives the render
// world and a read-only handle to the real main world; it must write
// only to render, matching spec.md's "systems in these stages may only
// borrow MainWorld read-only and must write only into the render world".
// The main/render split is restored before Extract returns, even if fn
// returns an error.
func (x *Extractor) Extract(fn func(render *World, mainWorld *World) error) error {
	if x.active {
		return fmt.Errorf("ecs: extract already in progress")
	}
	x.active = true
	defer func() { x.active = false }()

	// Steps 1-2: take the real main world out of the main slot, leaving
	// the scratch placeholder in its place so any caller still holding
	// Extractor.Main() sees a quiescent, empty world during extract.
	real := x.main
	x.main = x.scratch

	// Step 3: install the real main world as a read-only resource on the
	// render world.
	if err := x.render.InsertResource(x.mainWorldRef.Value(MainWorldRef{World: real})); err != nil {
		x.main = real
		return fmt.Errorf("ecs: extract: install MainWorldRef: %w", err)
	}

	// Step 4: run extract-stage systems against the render world.
	runErr := fn(x.render, real)

	// Step 5: reverse the swap.
	if err := x.render.RemoveResource(x.mainWorldRef.Component); err != nil && runErr == nil {
		runErr = fmt.Errorf("ecs: extract: remove MainWorldRef: %w", err)
	}
	x.main = real

	return runErr
}

// MainWorldResource returns the MainWorldRef resource currently installed
// on the render world, valid only for the duration of an Extract call.
func (x *Extractor) MainWorldResource() (MainWorldRef, bool) {
	v := x.mainWorldRef.GetFromEntityReadOnly(ResourceEntity)
	if v == nil {
		return MainWorldRef{}, false
	}
	return *v, true
}
