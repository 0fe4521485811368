package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kalambet/partystat/internal/report"
	"github.com/kalambet/partystat/internal/roster"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport streams the aggregated workbook as an attachment.
func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	data, recordCount, err := h.deps.Exporter.Export(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "导出汇总数据失败: %v", err)
		return
	}

	if err := h.deps.Log.Append(r.Context(), "export_data", clientIP(r), map[string]any{
		"recordCount": recordCount,
	}); err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "记录操作日志失败: %v", err)
		return
	}

	if h.deps.Metrics != nil {
		h.deps.Metrics.Exports.Inc()
	}

	filename := report.Filename(time.Now())
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleImport replaces the whole store with the contents of one uploaded
// summary workbook.
func (h *handler) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httpError(w, http.StatusBadRequest, errValidation, "解析上传内容失败: %v", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

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

	recordCount, err := h.deps.Importer.Import(r.Context(), rows, header.Filename, clientIP(r))
	if errors.Is(err, report.ErrBadFormat) {
		httpError(w, http.StatusBadRequest, errValidation, "导入文件格式不正确")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "数据导入失败: %v", err)
		return
	}

	if h.deps.Metrics != nil {
		h.deps.Metrics.Imports.Inc()
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "数据导入成功",
		"recordCount": recordCount,
	})
}
