package sl_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/finportal/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	attr := sl.Err(errors.New("something went wrong"))

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("something went wrong"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	attr := sl.Err(nil)

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "", attr.Value.String())
}

func TestOp(t *testing.T) {
	attr := sl.Op("gate.Middleware")

	assert.Equal(t, "op", attr.Key)
	assert.Equal(t, "gate.Middleware", attr.Value.String())
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, sl.LevelFor("local"))
	assert.Equal(t, slog.LevelDebug, sl.LevelFor("dev"))
	assert.Equal(t, slog.LevelInfo, sl.LevelFor("prod"))
	assert.Equal(t, slog.LevelInfo, sl.LevelFor(""))
}
