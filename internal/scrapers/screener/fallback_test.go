package screener

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActivateRunControlOrder(t *testing.T) {
	first := &fakeElement{}
	last := &fakeElement{}
	session := &fakeSession{
		elements: map[string]*fakeElement{
			RunScanLocators[0].XPath: first,
			RunScanLocators[3].XPath: last,
		},
	}

	result, err := ActivateRunControl(context.Background(), session, RunScanLocators)
	require.Nil(t, err)
	require.Equal(t, FallbackResult{Locator: "button-text", Activated: true}, result)
	require.Equal(t, 1, first.clicked)
	require.Equal(t, 0, last.clicked)
}

func TestActivateRunControlNotFound(t *testing.T) {
	session := &fakeSession{}
	result, err := ActivateRunControl(context.Background(), session, RunScanLocators)
	require.Nil(t, err)
	require.Equal(t, FallbackResult{}, result)
}

func TestActivateRunControlFailure(t *testing.T) {
	el := &fakeElement{
		clickErr: errors.New("not clickable"),
		forceErr: errors.New("node detached"),
	}
	session := &fakeSession{
		elements: map[string]*fakeElement{RunScanLocators[2].XPath: el},
	}

	result, err := ActivateRunControl(context.Background(), session, RunScanLocators)
	require.NotNil(t, err)
	require.Equal(t, "primary-button", result.Locator)
	require.False(t, result.Activated)
	require.Equal(t, 1, el.clicked)
	require.Equal(t, 1, el.forced)
}
