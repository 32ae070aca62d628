package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/infrastructure/repositories/tabular"
)

// Upload field names of a multipart run request
const (
	formStock        = "stock"
	formItems        = "items"
	formHistory      = "history"
	formPeriodDemand = "period_demand"
	formOrders       = "orders"
	formMachines     = "machines"
	formPolicy       = "policy"
	formSheet        = "sheet"
	formTemplate     = "template"
)

// cell is a raw table cell; JSON strings and numbers are both accepted
type cell struct {
	text *string
}

func (c *cell) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.text = dto.Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cell must be a string or a number, got %s", data)
	}
	c.text = dto.Text(n.String())
	return nil
}

type stockRowRequest struct {
	Code            cell `json:"code"`
	Description     cell `json:"description"`
	Category        cell `json:"category"`
	OnHandQty       cell `json:"on_hand_qty"`
	OpenOrdersQty   cell `json:"open_orders_qty"`
	UnitOfMeasure   cell `json:"unit_of_measure"`
	AssignedMachine cell `json:"assigned_machine"`
}

type itemRowRequest struct {
	Code            cell `json:"code"`
	Description     cell `json:"description"`
	Category        cell `json:"category"`
	UnitOfMeasure   cell `json:"unit_of_measure"`
	AssignedMachine cell `json:"assigned_machine"`
}

// runRequest is the JSON body of POST /v1/runs. Policy fields are merged over the
// server policy; machines fall back to the server's machine table.
type runRequest struct {
	Policy       json.RawMessage                          `json:"policy"`
	Stock        []stockRowRequest                        `json:"stock" binding:"required"`
	Items        []itemRowRequest                         `json:"items"`
	History      []entities.DemandRecord                  `json:"history"`
	PeriodDemand map[entities.ProductCode]decimal.Decimal `json:"period_demand"`
	Orders       []entities.CustomerOrder                 `json:"orders"`
	Machines     []entities.Machine                       `json:"machines"`
}

// confirmRequest is the body of POST /v1/runs/:id/confirm
type confirmRequest struct {
	Overrides []entities.Override `json:"overrides"`
	AddLines  []entities.Override `json:"add_lines"`
}

func (r *runRequest) input() dto.PlanningInput {
	input := dto.PlanningInput{
		History:      r.History,
		PeriodDemand: r.PeriodDemand,
		Orders:       r.Orders,
		Machines:     r.Machines,
	}
	for i, row := range r.Stock {
		input.Stock = append(input.Stock, dto.StockRow{
			Row:             i + 1,
			Code:            row.Code.text,
			Description:     row.Description.text,
			Category:        row.Category.text,
			OnHandQty:       row.OnHandQty.text,
			OpenOrdersQty:   row.OpenOrdersQty.text,
			UnitOfMeasure:   row.UnitOfMeasure.text,
			AssignedMachine: row.AssignedMachine.text,
		})
	}
	for i, row := range r.Items {
		input.Items = append(input.Items, dto.ItemRow{
			Row:             i + 1,
			Code:            row.Code.text,
			Description:     row.Description.text,
			Category:        row.Category.text,
			UnitOfMeasure:   row.UnitOfMeasure.text,
			AssignedMachine: row.AssignedMachine.text,
		})
	}
	return input
}

// mergePolicy decodes raw over the server policy and fills a missing as-of date
func (s *Server) mergePolicy(raw []byte) (entities.PlanningPolicy, error) {
	policy := s.policy
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &policy); err != nil {
			return policy, fmt.Errorf("invalid policy: %w", err)
		}
	}
	if policy.AsOf.IsZero() {
		now := s.now().UTC()
		policy.AsOf = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return policy, nil
}

// bindRunInput reads either a JSON body or multipart uploads
func (s *Server) bindRunInput(c *gin.Context) (dto.PlanningInput, error) {
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		return s.bindUploads(c)
	}

	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return dto.PlanningInput{}, err
	}
	policy, err := s.mergePolicy(req.Policy)
	if err != nil {
		return dto.PlanningInput{}, err
	}
	input := req.input()
	input.Policy = policy
	return input, nil
}

// bindUploads maps uploaded CSV or XLSX files through the tabular loaders
func (s *Server) bindUploads(c *gin.Context) (dto.PlanningInput, error) {
	var input dto.PlanningInput
	policy, err := s.mergePolicy([]byte(c.PostForm(formPolicy)))
	if err != nil {
		return input, err
	}
	input.Policy = policy

	loader := tabular.NewLoader(s.log)
	sheet := c.PostForm(formSheet)

	stock, err := uploadedTable(c, formStock, sheet)
	if err != nil {
		return input, err
	}
	if stock == nil {
		return input, fmt.Errorf("missing upload: %s", formStock)
	}
	if input.Stock, err = loader.StockRows(stock); err != nil {
		return input, err
	}

	steps := []struct {
		field string
		load  func(t *tabular.Table) error
	}{
		{formItems, func(t *tabular.Table) (err error) { input.Items, err = loader.ItemRows(t); return }},
		{formHistory, func(t *tabular.Table) (err error) { input.History, err = loader.HistoryRecords(t); return }},
		{formPeriodDemand, func(t *tabular.Table) (err error) { input.PeriodDemand, err = loader.PeriodDemand(t); return }},
		{formOrders, func(t *tabular.Table) (err error) { input.Orders, err = loader.Orders(t); return }},
		{formMachines, func(t *tabular.Table) (err error) { input.Machines, err = loader.Machines(t); return }},
	}
	for _, step := range steps {
		table, err := uploadedTable(c, step.field, sheet)
		if err != nil {
			return input, err
		}
		if table == nil {
			continue
		}
		if err := step.load(table); err != nil {
			return input, err
		}
	}
	return input, nil
}

// uploadedTable parses one upload; nil when the field was not sent
func uploadedTable(c *gin.Context, field, sheet string) (*tabular.Table, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", field, err)
	}
	return parseUpload(header, sheet)
}

func parseUpload(header *multipart.FileHeader, sheet string) (*tabular.Table, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
	}
	defer file.Close()
	return tabular.Parse(file, header.Filename, sheet)
}
