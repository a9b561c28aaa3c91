// Package segment names utterances and tracks their lifecycle.
package segment

import (
	"fmt"
	"sync/atomic"
)

const idInfix = "-seg-"

// Generator hands out utterance ids of the form "<session>-seg-<n>".
type Generator struct {
	counter uint64
}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) Next(sessionId string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s%s%d", sessionId, idInfix, n)
}
