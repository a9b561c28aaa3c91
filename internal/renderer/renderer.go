// Package renderer fans cursor events out to displays.
//
// Rendering is fire-and-forget: Render never blocks the session loop. A
// renderer that cannot keep up drops events and counts the drop.
package renderer

import "ai-teleprompter-service/internal/models"

// Renderer receives cursor events.
type Renderer interface {
	Render(ev models.CursorEvent)
}

// Func adapts a function to Renderer.
type Func func(ev models.CursorEvent)

// Render implements Renderer.
func (f Func) Render(ev models.CursorEvent) { f(ev) }

// Multi sends every event to each of its renderers in order.
type Multi []Renderer

// Render implements Renderer.
func (m Multi) Render(ev models.CursorEvent) {
	for _, r := range m {
		if r != nil {
			r.Render(ev)
		}
	}
}
