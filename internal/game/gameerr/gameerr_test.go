package gameerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/sailor/internal/game/gameerr"
)

func TestError_Format(t *testing.T) {
	err := gameerr.New(gameerr.CodeItemNotFound, "no such item \"sword\"")
	assert.Equal(t, "ITEM_NOT_FOUND: no such item \"sword\"", err.Error())

	wrapped := gameerr.Wrap(errors.New("disk full"), gameerr.CodeStorage, "saving player")
	assert.Equal(t, "STORAGE: saving player: disk full", wrapped.Error())
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := gameerr.InsufficientEnergy(0)
	assert.ErrorIs(t, err, gameerr.ErrInsufficientResource)
	assert.NotErrorIs(t, err, gameerr.ErrPlayerNotFound)

	outer := fmt.Errorf("fight: %w", err)
	assert.ErrorIs(t, outer, gameerr.ErrInsufficientResource)
}

func TestError_MetaDoesNotTouchSentinel(t *testing.T) {
	err := gameerr.InsufficientGold(30, 50)
	assert.Equal(t, 30, err.Meta["have"])
	assert.Equal(t, 50, err.Meta["need"])
	assert.Nil(t, gameerr.ErrInsufficientResource.Meta)
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.Nil(t, gameerr.Wrap(nil, gameerr.CodeStorage, "noop"))
	assert.NoError(t, gameerr.Storage(nil, "noop"))
}

func TestStorage_PreservesExistingCode(t *testing.T) {
	err := gameerr.Storage(gameerr.ErrPlayerNotFound, "loading player 7")
	assert.ErrorIs(t, err, gameerr.ErrPlayerNotFound)
	assert.NotErrorIs(t, err, gameerr.ErrStorage)

	raw := gameerr.Storage(errors.New("connection reset"), "saving player 7")
	assert.ErrorIs(t, raw, gameerr.ErrStorage)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, gameerr.Code(""), gameerr.CodeOf(nil))
	assert.Equal(t, gameerr.CodeInternal, gameerr.CodeOf(errors.New("plain")))
	assert.Equal(t, gameerr.CodeNotInTeam, gameerr.CodeOf(fmt.Errorf("x: %w", gameerr.ErrNotInTeam)))
}

func TestMetaOf(t *testing.T) {
	err := fmt.Errorf("buy: %w", gameerr.InsufficientGold(1, 2))
	meta := gameerr.MetaOf(err)
	require.NotNil(t, meta)
	assert.Equal(t, "gold", meta["resource"])
	assert.Nil(t, gameerr.MetaOf(errors.New("plain")))
}

func TestCode_Informational(t *testing.T) {
	assert.True(t, gameerr.CodeAlreadyClaimed.Informational())
	assert.False(t, gameerr.CodeInsufficientResource.Informational())
}

func TestStaleWrite(t *testing.T) {
	err := gameerr.StaleWrite(7, 3)
	assert.ErrorIs(t, err, gameerr.ErrConflict)
	assert.Equal(t, int64(3), err.Meta["version"])

	wrapped := gameerr.Storage(fmt.Errorf("saving player 7: %w", err), "saving player")
	assert.Equal(t, gameerr.CodeConflict, gameerr.CodeOf(wrapped))
	assert.NotErrorIs(t, wrapped, gameerr.ErrStorage)
}
