package api

import (
	"encoding/json"
	"net/http"

	"github.com/kalambet/partystat/internal/storage"
)

// Unit is one selectable administrative unit.
type Unit struct {
	Name     string `json:"name"`
	FullName string `json:"fullName,omitempty"`
}

func (h *handler) handleGetUnits(w http.ResponseWriter, r *http.Request) {
	units := []Unit{}
	if _, err := h.deps.Store.Read(r.Context(), h.deps.Store.UnitsPath(), &units); err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "读取单位列表失败: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": units})
}

// handleSetUnits replaces the unit list wholesale.
func (h *handler) handleSetUnits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Units []Unit `json:"units"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, errValidation, "请求格式不正确: %v", err)
		return
	}
	for _, u := range req.Units {
		if err := storage.ValidateUnitName(u.Name); err != nil {
			httpError(w, http.StatusBadRequest, errValidation, "单位名称无效: %q", u.Name)
			return
		}
	}

	if err := h.deps.Store.Write(r.Context(), h.deps.Store.UnitsPath(), req.Units); err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "保存单位列表失败: %v", err)
		return
	}

	if err := h.deps.Log.Append(r.Context(), "update_units", clientIP(r), map[string]any{
		"count": len(req.Units),
	}); err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "记录操作日志失败: %v", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "单位列表更新成功"})
}
