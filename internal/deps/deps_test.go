package deps

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codelens/codelens/internal/types"
)

func TestRegisterPath_Idempotent(t *testing.T) {
	g := New()
	g.RegisterPath(1, "/repo/a.go")
	g.RegisterPath(1, "/repo/a.go")
	assert.Equal(t, []types.FileID{1}, g.basenameToID["a.go"])
}

func TestAddEdge_BidirectionalAndCount(t *testing.T) {
	g := New()
	g.AddEdge(1, 2)
	g.AddEdge(3, 2)

	assert.ElementsMatch(t, []types.FileID{2}, g.Dependencies(1))
	assert.ElementsMatch(t, []types.FileID{1, 3}, g.Dependents(2))
	assert.Equal(t, 2, g.ImportCount(2))
	assert.Equal(t, 0, g.ImportCount(1))
}

func TestResolve_RelativeImport(t *testing.T) {
	g := New()
	g.RegisterPath(1, "/repo/src/index.js")
	g.RegisterPath(2, "/repo/src/util.js")

	id, ok := g.Resolve("/repo/src/index.js", "./util")
	assert.True(t, ok)
	assert.Equal(t, types.FileID(2), id)
}

func TestResolve_RelativeImport_ExactMatchBeforeExtensionProbe(t *testing.T) {
	g := New()
	g.RegisterPath(1, "/repo/src/index.js")
	g.RegisterPath(2, "/repo/src/util") // extensionless file present verbatim
	g.RegisterPath(3, "/repo/src/util.js")

	id, ok := g.Resolve("/repo/src/index.js", "./util")
	assert.True(t, ok)
	assert.Equal(t, types.FileID(2), id, "a path present exactly must win over an extension probe")
}

func TestResolve_BasenameImport(t *testing.T) {
	g := New()
	g.RegisterPath(1, "/repo/pkg/widget.rs")

	id, ok := g.Resolve("/repo/pkg/main.rs", "crate::widget")
	assert.True(t, ok)
	assert.Equal(t, types.FileID(1), id)
}

func TestResolve_BasenameCollision_FirstRegisteredWins(t *testing.T) {
	g := New()
	g.RegisterPath(1, "/repo/vendor/widget.py")
	g.RegisterPath(2, "/repo/src/widget.py")

	id, ok := g.Resolve("/repo/src/main.py", "widget")
	assert.True(t, ok)
	assert.Equal(t, types.FileID(1), id)
}

func TestResolve_NoMatch(t *testing.T) {
	g := New()
	_, ok := g.Resolve("/repo/src/index.ts", "./missing")
	assert.False(t, ok)

	_, ok = g.Resolve("/repo/src/index.ts", "lodash")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	g := New()
	g.RegisterPath(1, "/repo/a.go")
	g.AddEdge(1, 2)
	g.Clear()

	assert.Empty(t, g.Dependents(2))
	assert.Equal(t, 0, g.ImportCount(2))
	_, ok := g.Resolve("/repo/a.go", "./a")
	assert.False(t, ok)
}
