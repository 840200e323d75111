package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDialog struct {
	kind      string
	message   string
	accepted  []string
	acceptErr error
	dismissed bool
}

func (d *fakeDialog) Type() string    { return d.kind }
func (d *fakeDialog) Message() string { return d.message }
func (d *fakeDialog) Dismiss() error  { d.dismissed = true; return nil }

func (d *fakeDialog) Accept(promptText ...string) error {
	d.accepted = append(d.accepted, promptText...)
	return d.acceptErr
}

func TestDialogDismissedWhenNothingArmed(t *testing.T) {
	h := NewDialogHandler()
	d := &fakeDialog{kind: "alert", message: "hi"}

	rec := h.handle("0", d)
	assert.True(t, d.dismissed)
	assert.Equal(t, "dismiss", rec.Action)
	assert.False(t, rec.Armed)
}

func TestDialogArmedActionIsConsumed(t *testing.T) {
	h := NewDialogHandler()
	h.Arm(DialogAction{Accept: true, PromptText: "bob"})

	first := &fakeDialog{kind: "prompt", message: "name?"}
	rec := h.handle("0", first)
	assert.Equal(t, "accept", rec.Action)
	assert.True(t, rec.Armed)
	assert.Equal(t, []string{"bob"}, first.accepted)

	_, armed := h.Armed()
	assert.False(t, armed)

	second := &fakeDialog{kind: "confirm", message: "sure?"}
	h.handle("1", second)
	assert.True(t, second.dismissed)

	history := h.History()
	require.Len(t, history, 2)
	assert.Equal(t, "0", history[0].TabID)
	assert.Equal(t, "confirm", history[1].Type)
}

func TestDialogPersistentAction(t *testing.T) {
	h := NewDialogHandler()
	h.Arm(DialogAction{Accept: true, PromptText: "ignored", Persistent: true})

	for i := 0; i < 3; i++ {
		d := &fakeDialog{kind: "confirm"}
		rec := h.handle("0", d)
		assert.Equal(t, "accept", rec.Action)
		// prompt text only applies to prompts
		assert.Empty(t, d.accepted)
	}
	_, armed := h.Armed()
	assert.True(t, armed)

	h.Reset()
	_, armed = h.Armed()
	assert.False(t, armed)
	assert.Empty(t, h.History())
}

func TestDialogRecordsDriverError(t *testing.T) {
	h := NewDialogHandler()
	h.Arm(DialogAction{Accept: true})
	rec := h.handle("0", &fakeDialog{kind: "alert", acceptErr: errors.New("dialog already handled")})
	assert.Equal(t, "dialog already handled", rec.Error)
}

func TestRingIsBounded(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.add(i)
	}
	assert.Equal(t, 3, r.len())
	assert.Equal(t, []int{3, 4, 5}, r.snapshot(true))
	assert.Equal(t, 0, r.len())
}
