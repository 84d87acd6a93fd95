package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("Alert Not Found")))
	assert.Equal(t, KindValidation, KindOf(Validation("bad")))
	assert.Equal(t, KindConflict, KindOf(Conflict("dup")))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("plain")))

	f := Forbidden("ADMIN_CANNOT_CREATE_RESCUE_FORM", "denied")
	assert.Equal(t, http.StatusForbidden, GetCode(f))
	assert.Equal(t, "ADMIN_CANNOT_CREATE_RESCUE_FORM", ReasonOf(f))
}

func TestWrapKeepsKind(t *testing.T) {
	base := NotFound("Terminal Not Found")
	wrapped := fmt.Errorf("create alert: %w", base)
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.Equal(t, http.StatusNotFound, GetCode(wrapped))

	w := Wrap(base, "lookup failed")
	require.NotNil(t, w)
	assert.Equal(t, KindNotFound, w.Kind)
	assert.Equal(t, base, Cause(w))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestWithContextCopies(t *testing.T) {
	e := Validation("missing field")
	e2 := e.WithContext("field", "waterLevel")
	assert.Empty(t, e.Context)
	assert.Len(t, e2.Context, 1)
	assert.Equal(t, "missing field", fmt.Sprintf("%v", e2))
}
