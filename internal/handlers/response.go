package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

// statusFor maps an application error kind to an HTTP status
func statusFor(kind utils.ErrorKind) int {
	switch kind {
	case utils.KindNotFound:
		return http.StatusNotFound
	case utils.KindValidation:
		return http.StatusBadRequest
	case utils.KindBusinessRule:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {success:false, message} for err. Unexpected errors are
// logged and reported, and their details are not exposed.
func respondError(c *gin.Context, err error) {
	kind := utils.KindOf(err)
	status := statusFor(kind)
	message := err.Error()

	if kind == utils.KindUnexpected {
		tags := map[string]string{"route": c.FullPath()}
		if orgID := c.GetString("organization_id"); orgID != "" {
			tags["organization_id"] = orgID
		}
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Errorf("Request failed: %v", err)
		utils.CaptureError(err, tags)
		message = "Internal server error"
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{"success": false, "message": message})
}

// respondBindError writes a 400 for a malformed request body
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request data",
		"details": err.Error(),
	})
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondPage(c *gin.Context, data interface{}, pagination utils.PaginationResponse) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "pagination": pagination})
}

func organizationID(c *gin.Context) string {
	return c.MustGet("organization_id").(string)
}

// pageParams reads page and page_size from the query string
func pageParams(c *gin.Context) (int, int) {
	return utils.ParsePaginationFromQuery(c.Query("page"), c.Query("page_size"))
}

// intQuery parses an optional integer query parameter
func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, utils.Validation("%s must be an integer", name)
	}
	return v, nil
}

func setAttachmentHeaders(c *gin.Context, filename, contentType string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", contentType)
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Cache-Control", "must-revalidate")
}
