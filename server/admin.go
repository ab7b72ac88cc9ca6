package server

import (
	"encoding/json"
	"net/http"

	"gridwalk/logging"
)

// HandleAdminConfig 提供运行期配置的读取与更新（热更新基本规则）
// GET /admin/config  返回当前配置
// POST /admin/config 以 JSON 载荷更新部分字段
func (h *Hub) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		MoveStep   *float32 `json:"moveStep,omitempty"`
		MaxChatLen *int     `json:"maxChatLen,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		step := h.state.Step()
		cur := cfg{
			MoveStep:   &step,
			MaxChatLen: &h.cfg.MaxChatLen,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cur)
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.MoveStep != nil {
			h.state.SetStep(*body.MoveStep)
		}
		if body.MaxChatLen != nil && *body.MaxChatLen > 0 {
			h.cfg.MaxChatLen = *body.MaxChatLen
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		logging.Log.Infof("admin: config updated: step=%.2f maxChatLen=%d", h.state.Step(), h.cfg.MaxChatLen)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
