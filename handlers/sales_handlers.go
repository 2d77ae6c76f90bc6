package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/cakeworks/cake-sales/database"
	"github.com/cakeworks/cake-sales/ledger"
	"github.com/cakeworks/cake-sales/models"
	"github.com/cakeworks/cake-sales/utils"
)

type recordSalesRequest struct {
	Date       string         `json:"date"`
	Region     string         `json:"region"`
	Quantities map[string]int `json:"quantities"`
}

// HandleRecordSales appends the sales of one day in one region.
// POST /api/v1/sales
func (h *Handler) HandleRecordSales(c *fiber.Ctx) error {
	var req recordSalesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		return h.fail(c, err)
	}
	n, err := h.Ledger.AppendDailySales(c.UserContext(), date, req.Region, req.Quantities)
	if err != nil {
		return h.fail(c, err)
	}
	total := 0
	for _, q := range req.Quantities {
		total += q
	}
	return created(c, fiber.Map{
		"date":    date,
		"weekday": models.WeekdayName(date),
		"region":  req.Region,
		"rows":    n,
		"total":   total,
	})
}

// HandleListSales returns recorded sales, newest first, one page at a time.
// GET /api/v1/sales?region=&cakeType=&since=&until=&page=&pageSize=
func (h *Handler) HandleListSales(c *fiber.Ctx) error {
	since, err := utils.ParseOptionalDate(c.Query("since"))
	if err != nil {
		return h.fail(c, err)
	}
	until, err := utils.ParseOptionalDate(c.Query("until"))
	if err != nil {
		return h.fail(c, err)
	}
	page, err := queryInt(c, "page")
	if err != nil {
		return h.fail(c, err)
	}
	pageSize, err := queryInt(c, "pageSize")
	if err != nil {
		return h.fail(c, err)
	}

	filter := database.SaleFilter{Since: since, Until: until, Region: c.Query("region"), CakeType: c.Query("cakeType")}
	sales, err := ledger.Collect(h.Ledger.Query(c.UserContext(), filter))
	if err != nil {
		return h.fail(c, err)
	}
	sort.SliceStable(sales, func(i, j int) bool {
		if cmp := models.CompareDates(sales[i].Date, sales[j].Date); cmp != 0 {
			return cmp > 0
		}
		if sales[i].Region != sales[j].Region {
			return sales[i].Region < sales[j].Region
		}
		return sales[i].CakeType < sales[j].CakeType
	})

	pagination := utils.CreatePagination(len(sales), page, pageSize)
	start, end := utils.PageBounds(pagination)
	return success(c, models.PaginatedSalesResponse{Items: sales[start:end], Pagination: pagination})
}
