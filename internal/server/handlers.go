package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mihari/internal/session"
	"mihari/internal/zone"
)

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleStatus はシステム状態取得エンドポイント
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "running",
		"server": gin.H{
			"host": s.config.Server.Host,
			"port": s.config.Server.Port,
		},
		"cameras":   len(s.config.Camera.Devices),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleCamerasStatus は全カメラのセッション状態を返す。
// 設定済みの全カメラが含まれ、セッション未作成のカメラはstoppedになる。
func (s *Server) handleCamerasStatus(c *gin.Context) {
	statuses := make(map[string]session.Status, len(s.config.Camera.Devices))
	for _, device := range s.config.Camera.Devices {
		statuses[device.ID] = s.registry.Status(device.ID)
	}
	c.JSON(http.StatusOK, statuses)
}

// handleCameraStart は解析セッションを開始する
func (s *Server) handleCameraStart(c *gin.Context) {
	cameraID, ok := s.knownCamera(c)
	if !ok {
		return
	}

	// ワーカーの寿命をリクエストに縛らないよう親コンテキストで起動する
	status, err := s.registry.Start(s.opCtx, cameraID)
	s.respondTransition(c, cameraID, status, err)
}

// handleCameraStop は解析セッションを停止する
func (s *Server) handleCameraStop(c *gin.Context) {
	cameraID, ok := s.knownCamera(c)
	if !ok {
		return
	}

	status, err := s.registry.Stop(c.Request.Context(), cameraID)
	s.respondTransition(c, cameraID, status, err)
}

// handleCameraPause は実行中の解析を一時停止する
func (s *Server) handleCameraPause(c *gin.Context) {
	cameraID, ok := s.knownCamera(c)
	if !ok {
		return
	}

	status, err := s.registry.Pause(cameraID)
	s.respondTransition(c, cameraID, status, err)
}

// handleCameraPlay は一時停止中の解析を再開する
func (s *Server) handleCameraPlay(c *gin.Context) {
	cameraID, ok := s.knownCamera(c)
	if !ok {
		return
	}

	status, err := s.registry.Play(cameraID)
	s.respondTransition(c, cameraID, status, err)
}

// handleGetZones はカメラのゾーン定義を取得する
func (s *Server) handleGetZones(c *gin.Context) {
	cameraID, ok := s.knownCamera(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, s.zones.GetZones(cameraID))
}

// handlePutZones はカメラのゾーン定義を全置換する。
// フロントエンドは編集済みのセット全体を送信する。
func (s *Server) handlePutZones(c *gin.Context) {
	cameraID, ok := s.knownCamera(c)
	if !ok {
		return
	}

	var set zone.ZoneSet
	if err := c.ShouldBindJSON(&set); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "invalid_request",
			"message":   "ゾーン定義の解析に失敗しました",
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}

	saved, err := s.zones.ReplaceZones(c.Request.Context(), cameraID, set)
	if err != nil {
		var validation *zone.ValidationError
		if errors.As(err, &validation) {
			// 違反したゾーンを特定して返す（書き込みは行われていない）
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":     "zone_validation_failed",
				"message":   validation.Error(),
				"zone_id":   validation.ZoneID,
				"zone_name": validation.ZoneName,
				"rule":      validation.Rule,
				"timestamp": time.Now().Format(time.RFC3339),
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "zone_save_failed",
			"message":   err.Error(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, saved)
}

// knownCamera はパスパラメータのカメラIDを検証する。
// 未設定のカメラなら404を返してfalseを返す。
func (s *Server) knownCamera(c *gin.Context) (string, bool) {
	cameraID := c.Param("id")
	if !s.config.HasCamera(cameraID) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "camera_not_found",
			"message":   "指定されたカメラが見つかりません",
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return cameraID, false
	}
	return cameraID, true
}

// respondTransition はセッション操作の結果をレスポンスに変換する
func (s *Server) respondTransition(c *gin.Context, cameraID string, status session.Status, err error) {
	// 既に目的の状態だった場合も成功として現在の状態を返す
	if err == nil || errors.Is(err, session.ErrAlreadyInDesiredState) {
		c.JSON(http.StatusOK, gin.H{
			"camera_id": cameraID,
			"status":    status,
		})
		return
	}

	var invalid *session.InvalidTransitionError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "invalid_transition",
			"message":   err.Error(),
			"camera_id": cameraID,
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}

	var startFailure *session.WorkerStartFailureError
	if errors.As(err, &startFailure) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "worker_start_failed",
			"message":   err.Error(),
			"camera_id": cameraID,
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     "session_operation_failed",
		"message":   err.Error(),
		"camera_id": cameraID,
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
