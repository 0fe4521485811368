package api

import (
	"errors"
	"net/http"

	"github.com/kalambet/partystat/internal/roster"
	"github.com/kalambet/partystat/internal/storage"
)

// handleUpload ingests one categorized spreadsheet for one unit. The summary
// is recomputed before the response is written.
func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httpError(w, http.StatusBadRequest, errValidation, "解析上传内容失败: %v", err)
		return
	}
	// Multipart spills large parts to temp files; remove them on every path.
	defer r.MultipartForm.RemoveAll()

	unit := r.FormValue("unit")
	category, err := roster.ParseCategory(r.FormValue("type"))
	if err != nil {
		httpError(w, http.StatusBadRequest, errValidation, "数据类型无效: %q", r.FormValue("type"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, errValidation, "请选择文件")
		return
	}
	defer file.Close()

	if !h.deps.Upload.AllowedExtension(header.Filename) {
		httpError(w, http.StatusBadRequest, errValidation, "只支持 Excel 文件格式")
		return
	}

	rows, err := roster.DecodeSheet(file)
	if err != nil {
		httpError(w, http.StatusBadRequest, errIngest, "读取 Excel 文件失败: %v", err)
		return
	}

	recordCount, err := h.deps.Ingestor.Ingest(r.Context(), unit, category, header.Filename, clientIP(r), rows)
	if errors.Is(err, storage.ErrBadUnitName) {
		httpError(w, http.StatusBadRequest, errValidation, "单位名称无效: %q", unit)
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "数据上传失败: %v", err)
		return
	}

	if h.deps.Metrics != nil {
		h.deps.Metrics.ObserveUpload(int(category))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "数据上传成功",
		"recordCount": recordCount,
	})
}
