package manager

import (
	"sort"
	"time"

	"modelgw/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	resp := types.StatusResponse{
		Backend:               m.backendName,
		UptimeSeconds:         int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix:        now.Unix(),
		GenerationsTotal:      m.generations.Load(),
		GenerationErrorsTotal: m.genErrors.Load(),
		LastError:             m.lastErr,
	}
	resp.Models = make([]types.ModelStatus, 0, len(m.instances))
	for _, inst := range m.instances {
		st := types.ModelStatus{
			ModelID:       inst.ID,
			QueueLen:      len(inst.queueCh),
			Inflight:      len(inst.genCh),
			MaxQueueDepth: cap(inst.queueCh),
		}
		if !inst.LastUsed.IsZero() {
			st.LastUsed = inst.LastUsed.Unix()
		}
		resp.Models = append(resp.Models, st)
	}
	sort.Slice(resp.Models, func(i, j int) bool { return resp.Models[i].ModelID < resp.Models[j].ModelID })
	return resp
}
