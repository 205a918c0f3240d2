package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmgc95/gcash-buy-backend/internal/i18n"
	"github.com/jmgc95/gcash-buy-backend/internal/service"
	"github.com/sirupsen/logrus"
)

// ReceiptController 收据控制器
type ReceiptController struct {
	svc          service.ReceiptService
	artifactName string
	maxUpload    int64
	logger       logrus.FieldLogger
}

// NewReceiptController 创建收据控制器
func NewReceiptController(svc service.ReceiptService, artifactName string, maxUploadBytes int64, logger logrus.FieldLogger) *ReceiptController {
	return &ReceiptController{
		svc:          svc,
		artifactName: artifactName,
		maxUpload:    maxUploadBytes,
		logger:       logger,
	}
}

// Upload 上传付款收据
// POST /upload (multipart: receipt, name, email, amount, autokey)
// 未上传文件时返回 200 和 success:false
func (rc *ReceiptController) Upload(c *gin.Context) {
	if rc.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, rc.maxUpload)
	}

	// 1. 读取收据文件
	req := &service.SubmitRequest{Language: GetLanguage(c)}
	file, header, err := c.Request.FormFile("receipt")
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, service.SubmitResult{
			Success: false,
			Message: T(c, i18n.KeyUploadFailed),
		})
		return
	case err == nil:
		defer file.Close()
		req.File = file
		req.FileName = header.Filename
		req.FileSize = header.Size
	}

	// 2. 读取元数据
	req.Name = c.PostForm("name")
	req.Email = c.PostForm("email")
	req.Amount = c.PostForm("amount")
	req.AutoKey = c.PostForm("autokey")

	// 3. 创建记录
	result, err := rc.svc.Submit(c.Request.Context(), req)
	if err != nil {
		rc.logger.WithError(err).WithField("request_id", GetRequestID(c)).Error("failed to submit receipt")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, service.SubmitResult{
			Success: false,
			Message: T(c, i18n.KeyUploadFailed),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Status 查询审核状态
// GET /status?id=<id>,未知 id 返回 {}
func (rc *ReceiptController) Status(c *gin.Context) {
	result, err := rc.svc.Query(c.Request.Context(), c.Query("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Download 审核通过后下载固定文件
// GET /download/:id/:token
func (rc *ReceiptController) Download(c *gin.Context) {
	path, err := rc.svc.Download(c.Request.Context(), c.Param("id"), c.Param("token"))
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		c.String(http.StatusForbidden, T(c, i18n.KeyAccessDenied))
		return
	case errors.Is(err, service.ErrArtifactMissing):
		rc.logger.Error("gated artifact missing on disk")
		c.String(http.StatusNotFound, T(c, i18n.KeyArtifactMissing))
		return
	case err != nil:
		_ = c.Error(err)
		return
	}

	c.FileAttachment(path, rc.artifactName)
}
