package controllers

import (
	"encoding/csv"
	"io"
	"net/http"

	"envie2sortir-backend/logger"

	"github.com/gin-gonic/gin"
)

// writeCSV streams an attachment. Headers are already sent when a row fails,
// so the failure is logged and the body is cut short.
func writeCSV(c *gin.Context, filename string, header []string, rows [][]string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)

	if err := writeCSVRows(c.Writer, header, rows); err != nil {
		logger.L().Error("csv export interrupted", map[string]interface{}{
			"file":  filename,
			"error": err,
		})
	}
}

func writeCSVRows(dst io.Writer, header []string, rows [][]string) error {
	w := csv.NewWriter(dst)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
