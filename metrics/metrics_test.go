// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"code.hybscloud.com/vexec/metrics"
)

func TestMustRegisterAndObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New("vexec_test")
	c.MustRegister(reg)

	c.ObserveSchedule(0.01, nil, 12, true)
	c.ObserveSchedule(0.02, errors.New("boom"), 0, false)
	c.RegistryResurrections.Inc()
	c.RegistryEntries.Set(42)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("Gather() returned no metric families")
	}

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"vexec_test_scheduler_schedule_duration_seconds",
		"vexec_test_mask_registry_entries",
		"vexec_test_mask_registry_resurrections_total",
		"vexec_test_scheduler_task_graph_size",
	} {
		if !names[want] {
			t.Fatalf("missing metric family %q in %v", want, names)
		}
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New("vexec_dup").MustRegister(reg)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustRegister to panic on duplicate registration")
		}
	}()
	metrics.New("vexec_dup").MustRegister(reg)
}
