package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cakeworks/cake-sales/database"
	"github.com/cakeworks/cake-sales/utils"
)

// SyncRequest is a batch of daily sales captured offline and uploaded at once.
type SyncRequest struct {
	BatchID  string             `json:"batchId"`
	DeviceID string             `json:"deviceId"`
	Entries  []OfflineDailySale `json:"entries"`
}

// OfflineDailySale is one (date, region) entry of a SyncRequest.
type OfflineDailySale struct {
	LocalID    string         `json:"localId"`
	Date       string         `json:"date"`
	Region     string         `json:"region"`
	Quantities map[string]int `json:"quantities"`
}

// SyncResult represents the result of syncing a single entry
type SyncResult struct {
	LocalID       string  `json:"localId"`
	Status        string  `json:"status"` // "synced" or "failed"
	Rows          int     `json:"rows"`
	AlreadySynced bool    `json:"alreadySynced"`
	Error         *string `json:"error"`
}

// BatchSyncResponse represents the response for a batch sync
type BatchSyncResponse struct {
	Status      string       `json:"status"` // "success", "partial", "failed"
	SyncBatchID string       `json:"syncBatchId"`
	Results     []SyncResult `json:"results"`
	SyncedCount int          `json:"syncedCount"`
	FailedCount int          `json:"failedCount"`
}

// HandleSyncOfflineSales appends a batch of daily sales. Every entry is written on its own,
// so a bad entry fails alone and the rest are kept. Entries are keyed by (deviceId, localId):
// re-uploading an entry that already went through reports it as synced without writing again.
// POST /api/v1/sales/sync
func (h *Handler) HandleSyncOfflineSales(c *fiber.Ctx) error {
	var req SyncRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid sync request format")
	}
	if len(req.Entries) == 0 {
		return badRequest(c, "No sales to sync")
	}
	h.Log.Info("batch sync started", "batch_id", req.BatchID, "device_id", req.DeviceID, "entries", len(req.Entries))

	resp := BatchSyncResponse{SyncBatchID: req.BatchID, Results: make([]SyncResult, 0, len(req.Entries))}
	for _, e := range req.Entries {
		result := h.syncEntry(c, req.DeviceID, e)
		if result.Status == "synced" {
			resp.SyncedCount++
		} else {
			resp.FailedCount++
		}
		resp.Results = append(resp.Results, result)
	}

	switch {
	case resp.FailedCount == 0:
		resp.Status = "success"
	case resp.SyncedCount == 0:
		resp.Status = "failed"
	default:
		resp.Status = "partial"
	}
	h.Log.Info("batch sync finished", "batch_id", req.BatchID, "synced", resp.SyncedCount, "failed", resp.FailedCount)
	return success(c, resp)
}

func (h *Handler) syncEntry(c *fiber.Ctx, deviceID string, e OfflineDailySale) SyncResult {
	fail := func(err error) SyncResult {
		msg := err.Error()
		h.Log.Warn("sync entry failed", "local_id", e.LocalID, "error", err)
		return SyncResult{LocalID: e.LocalID, Status: "failed", Error: &msg}
	}
	date, err := utils.ParseDate(e.Date)
	if err != nil {
		return fail(err)
	}
	key := database.SyncKey{DeviceID: deviceID, LocalID: e.LocalID}
	n, replayed, err := h.Ledger.AppendDailySalesOnce(c.UserContext(), key, date, e.Region, e.Quantities)
	if err != nil {
		return fail(err)
	}
	return SyncResult{LocalID: e.LocalID, Status: "synced", Rows: n, AlreadySynced: replayed}
}
