package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-wizard/model"
	"github.com/mbolis/quick-wizard/wizard"
)

func TestObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New()
	require.NoError(t, o.Register(reg))

	o.Started()
	o.Transition(wizard.TransitionNext)
	o.Transition(wizard.TransitionNext)
	o.Transition(wizard.TransitionComplete)
	o.ValidationFailed(model.Email)
	o.PersistenceFailed("save_progress")

	assert.Equal(t, 1.0, testutil.ToFloat64(o.started))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.completed))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.transitions.WithLabelValues("next")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.validation.WithLabelValues("EMAIL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.persistence.WithLabelValues("save_progress")))

	assert.Error(t, o.Register(reg), "registering twice fails")
}
