// Package infoream talks to the inforEAM asset management gateway: equipment
// records, their hierarchy, comments and label printing.
package infoream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"irrad-data/internal/config"
	"irrad-data/internal/equipment"
	"irrad-data/internal/metrics"
	"irrad-data/internal/store"
)

var (
	// ErrNotFound is returned when the asset or comment does not exist.
	ErrNotFound = errors.New("equipment record couldn't be found")
	// ErrInvalidID is returned for facility ids without an inforEAM equivalent.
	ErrInvalidID = errors.New("id has no inforEAM equivalent")
)

// API is the set of inforEAM operations the service uses.
type API interface {
	ReadEquipment(ctx context.Context, code string) (*Equipment, error)
	ReadEquipmentBatch(ctx context.Context, codes []string) ([]equipment.Lookup, error)
	CreateEquipment(ctx context.Context, eq *Equipment) error
	UpdateEquipment(ctx context.Context, eq *Equipment) error
	AttachParent(ctx context.Context, child, parent string) error
	DetachParent(ctx context.Context, child string) error
	ReadComment(ctx context.Context, code string, line int) (*Comment, error)
	CreateComment(ctx context.Context, c *Comment) error
	UpdateComment(ctx context.Context, c *Comment) error
	PrintLabel(ctx context.Context, req *PrintRequest) error
}

type batchRequest struct {
	Codes []string `json:"codes"`
}

type batchResult struct {
	Code         string `json:"code"`
	Found        bool   `json:"found"`
	SerialNumber string `json:"serialNumber"`
	ErrorMessage string `json:"errorMessage"`
}

type batchResponse struct {
	Results []batchResult `json:"results"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Client is the REST gateway client.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient creates the gateway client from cfg.
func NewClient(cfg config.InforEAMConfig, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Username != "" {
		client.SetBasicAuth(cfg.Username, cfg.Password)
	}
	return &Client{httpClient: client, logger: logger}
}

// do runs req and maps the gateway status codes. 404 becomes ErrNotFound.
func (c *Client) do(op string, req *resty.Request, method, path string) error {
	resp, err := req.SetError(&errorResponse{}).Execute(method, path)
	if err != nil {
		metrics.InforEAMCalls.WithLabelValues(op, "error").Inc()
		c.logger.Error("inforEAM call failed", zap.String("operation", op), zap.Error(err))
		return fmt.Errorf("inforEAM %s: %w", op, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		metrics.InforEAMCalls.WithLabelValues(op, "not_found").Inc()
		return ErrNotFound
	}
	if resp.IsError() {
		metrics.InforEAMCalls.WithLabelValues(op, "error").Inc()
		msg := resp.Status()
		if e, ok := resp.Error().(*errorResponse); ok && e.Message != "" {
			msg = e.Message
		}
		c.logger.Error("inforEAM returned error",
			zap.String("operation", op),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", msg),
		)
		return fmt.Errorf("inforEAM %s: %s (status: %d)", op, msg, resp.StatusCode())
	}
	metrics.InforEAMCalls.WithLabelValues(op, "ok").Inc()
	return nil
}

func (c *Client) ReadEquipment(ctx context.Context, code string) (*Equipment, error) {
	var eq Equipment
	req := c.httpClient.R().SetContext(ctx).SetPathParam("code", code).SetResult(&eq)
	if err := c.do("read_equipment", req, resty.MethodGet, "/equipment/{code}"); err != nil {
		return nil, err
	}
	return &eq, nil
}

// ReadEquipmentBatch answers in request order. Missing assets come back with
// Found=false and the gateway error message.
func (c *Client) ReadEquipmentBatch(ctx context.Context, codes []string) ([]equipment.Lookup, error) {
	var out batchResponse
	req := c.httpClient.R().SetContext(ctx).SetBody(batchRequest{Codes: codes}).SetResult(&out)
	if err := c.do("read_equipment_batch", req, resty.MethodPost, "/equipment/batch"); err != nil {
		return nil, err
	}
	lookups := make([]equipment.Lookup, len(out.Results))
	for i, r := range out.Results {
		lookups[i] = equipment.Lookup{
			Code:         r.Code,
			Found:        r.Found,
			SerialNumber: r.SerialNumber,
			ErrorMessage: r.ErrorMessage,
		}
	}
	return lookups, nil
}

func (c *Client) CreateEquipment(ctx context.Context, eq *Equipment) error {
	req := c.httpClient.R().SetContext(ctx).SetBody(eq)
	return c.do("create_equipment", req, resty.MethodPost, "/equipment")
}

func (c *Client) UpdateEquipment(ctx context.Context, eq *Equipment) error {
	req := c.httpClient.R().SetContext(ctx).SetPathParam("code", eq.Code).SetBody(eq)
	return c.do("update_equipment", req, resty.MethodPut, "/equipment/{code}")
}

func (c *Client) AttachParent(ctx context.Context, child, parent string) error {
	req := c.httpClient.R().SetContext(ctx).SetPathParam("code", child).SetBody(newHierarchy(child, parent))
	return c.do("attach_parent", req, resty.MethodPut, "/equipment/{code}/hierarchy")
}

func (c *Client) DetachParent(ctx context.Context, child string) error {
	req := c.httpClient.R().SetContext(ctx).SetPathParam("code", child).SetBody(newHierarchy(child, ""))
	return c.do("detach_parent", req, resty.MethodPut, "/equipment/{code}/hierarchy")
}

// ReadComment returns ErrNotFound for a missing or empty comment line.
func (c *Client) ReadComment(ctx context.Context, code string, line int) (*Comment, error) {
	var cm Comment
	req := c.httpClient.R().SetContext(ctx).
		SetPathParams(map[string]string{"entity": commentEntity, "code": code, "line": strconv.Itoa(line)}).
		SetResult(&cm)
	if err := c.do("read_comment", req, resty.MethodGet, "/comments/{entity}/{code}/{line}"); err != nil {
		return nil, err
	}
	if cm.EntityKeyCode == "" {
		return nil, ErrNotFound
	}
	return &cm, nil
}

func (c *Client) CreateComment(ctx context.Context, cm *Comment) error {
	req := c.httpClient.R().SetContext(ctx).SetBody(cm)
	return c.do("create_comment", req, resty.MethodPost, "/comments")
}

func (c *Client) UpdateComment(ctx context.Context, cm *Comment) error {
	req := c.httpClient.R().SetContext(ctx).
		SetPathParams(map[string]string{"entity": cm.EntityCode, "code": cm.EntityKeyCode, "line": strconv.Itoa(cm.LineNumber)}).
		SetBody(cm)
	return c.do("update_comment", req, resty.MethodPut, "/comments/{entity}/{code}/{line}")
}

func (c *Client) PrintLabel(ctx context.Context, pr *PrintRequest) error {
	c.logger.Info("Printing inforEAM label",
		zap.String("code", pr.PrintVariables.Code),
		zap.String("printer", pr.PrinterPath),
		zap.Int("copies", pr.PrintQty),
	)
	req := c.httpClient.R().SetContext(ctx).SetBody(pr)
	return c.do("print_label", req, resty.MethodPost, "/print-requests")
}

// New returns the API the service should use: the simulator when cfg.Simulate
// is set, otherwise the gateway client behind the KV read cache.
func New(cfg config.InforEAMConfig, kv store.KV, logger *zap.Logger) API {
	if cfg.Simulate {
		logger.Warn("inforEAM simulation enabled, no gateway calls will be made")
		return NewSimulator()
	}
	return NewCached(NewClient(cfg, logger), kv, cfg.CacheTTL, logger)
}
