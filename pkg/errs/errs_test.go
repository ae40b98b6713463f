package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("column \"CO(GT)\" not found")
	err := Wrap(KindPreprocessing, cause, "preprocessing failed")

	assert.ErrorIs(t, err, ErrPreprocessing)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrModelTraining)
	assert.Equal(t, "preprocessing failed: column \"CO(GT)\" not found", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(KindONNXExport, nil, "export"))
}

func TestKindOf(t *testing.T) {
	inner := New(KindEmptyDataset, "dataset became empty after preprocessing")
	outer := fmt.Errorf("run: %w", inner)

	assert.Equal(t, KindEmptyDataset, KindOf(outer))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "empty_dataset", New(KindEmptyDataset, "").Error())
}
