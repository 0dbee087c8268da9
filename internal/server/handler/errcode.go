package handler

import (
	"net/http"
	"strconv"

	"github.com/alanyoungcy/coinonebot/internal/platform/coinone"
)

// GetErrorCode describes a Coinone error code.
// GET /api/errors/{code}?lang=en|kr
func GetErrorCode(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(pathParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "error code must be an integer")
		return
	}
	writeJSON(w, http.StatusOK, coinone.DescribeError(code, r.URL.Query().Get("lang")))
}
