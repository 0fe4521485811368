package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/partystat/internal/roster"
	"github.com/kalambet/partystat/internal/storage"
)

// handleSummary returns every unit's summary document.
func (h *handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	units, err := h.deps.Store.ListSummaryUnits()
	if err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "读取汇总数据失败: %v", err)
		return
	}

	all := map[string]roster.Summary{}
	for _, unit := range units {
		summary, found, err := h.agg.LoadSummary(r.Context(), unit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, errStorage, "读取汇总数据失败: %v", err)
			return
		}
		if found {
			all[unit] = summary
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": all})
}

// handleUnitDetail returns one unit's raw rows per category.
func (h *handler) handleUnitDetail(w http.ResponseWriter, r *http.Request) {
	unit := chi.URLParam(r, "unit")
	if err := storage.ValidateUnitName(unit); err != nil {
		httpError(w, http.StatusBadRequest, errValidation, "单位名称无效: %q", unit)
		return
	}

	categories, err := h.deps.Store.ListDetailCategories(unit)
	if err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "读取明细数据失败: %v", err)
		return
	}

	details := map[roster.Category][][]roster.Cell{}
	for _, code := range categories {
		var doc roster.DetailDocument
		found, err := h.deps.Store.Read(r.Context(), h.deps.Store.DetailPath(unit, code), &doc)
		if err != nil {
			httpError(w, http.StatusInternalServerError, errStorage, "读取明细数据失败: %v", err)
			return
		}
		if found {
			rows := doc.Rows
			if rows == nil {
				rows = [][]roster.Cell{}
			}
			details[roster.Category(code)] = rows
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": details})
}

// handleDeleteUnit clears one unit's summary and detail storage.
func (h *handler) handleDeleteUnit(w http.ResponseWriter, r *http.Request) {
	unit := chi.URLParam(r, "unit")

	err := h.deps.Store.DeleteUnit(r.Context(), unit)
	if errors.Is(err, storage.ErrBadUnitName) {
		httpError(w, http.StatusBadRequest, errValidation, "单位名称无效: %q", unit)
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "清除单位数据失败: %v", err)
		return
	}

	if err := h.deps.Log.Append(r.Context(), "clear_unit_data", clientIP(r), map[string]any{
		"unit": unit,
	}); err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "记录操作日志失败: %v", err)
		return
	}

	if h.deps.Metrics != nil {
		h.deps.Metrics.UnitsCleared.Inc()
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "单位 " + unit + " 的数据已清除",
	})
}
