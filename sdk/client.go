package sdk

import (
	"errors"
	"fmt"

	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"

	"github.com/flow-platform/flowens/schema"
)

// Client is the thin HTTP client over a flowens node.
type Client struct {
	SCli *gentleman.Client
}

func New(flowUrl string) *Client {
	return &Client{
		SCli: gentleman.New().URL(flowUrl),
	}
}

type InfoResp struct {
	Identity            string `json:"identity"`
	Resolver            string `json:"resolver"`
	MinCommitmentAgeSec int64  `json:"minCommitmentAgeSec"`
	MaxCommitmentAgeSec int64  `json:"maxCommitmentAgeSec"`
	GasPriceWei         string `json:"gasPriceWei"`
}

func (c *Client) GetInfo() (InfoResp, error) {
	req := c.SCli.Get()
	req.Path("/info")
	resp, err := req.Send()
	if err != nil {
		return InfoResp{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return InfoResp{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	info := InfoResp{}
	err = resp.JSON(&info)
	return info, err
}

func (c *Client) Available(label string) (schema.AvailableResp, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/name/%s/available", label))
	resp, err := req.Send()
	if err != nil {
		return schema.AvailableResp{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.AvailableResp{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	ar := schema.AvailableResp{}
	err = resp.JSON(&ar)
	return ar, err
}

func (c *Client) Price(label string, years int) (schema.PriceQuote, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/name/%s/price", label))
	req.AddQuery("years", fmt.Sprintf("%d", years))
	resp, err := req.Send()
	if err != nil {
		return schema.PriceQuote{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.PriceQuote{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	quote := schema.PriceQuote{}
	err = resp.JSON(&quote)
	return quote, err
}

func (c *Client) Suggestions(label string) ([]string, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/name/%s/suggestions", label))
	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	names := make([]string, 0)
	err = resp.JSON(&names)
	return names, err
}

func (c *Client) NewAttempt(owner string, nar schema.NewAttemptReq) (schema.Attempt, error) {
	req := c.SCli.Post()
	req.Path("/attempt")
	if owner != "" {
		req.AddQuery("owner", owner)
	}
	req.Use(body.JSON(nar))
	return sendAttempt(req)
}

func (c *Client) GetAttempt(id string) (schema.Attempt, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/attempt/%s", id))
	return sendAttempt(req)
}

func (c *Client) CheckAttempt(id string) (schema.Attempt, error) {
	return c.postAttemptStage(id, "check")
}

func (c *Client) CommitAttempt(id string) (schema.Attempt, error) {
	return c.postAttemptStage(id, "commit")
}

func (c *Client) RegisterAttempt(id string) (schema.Attempt, error) {
	return c.postAttemptStage(id, "register")
}

func (c *Client) postAttemptStage(id, stage string) (schema.Attempt, error) {
	req := c.SCli.Post()
	req.Path(fmt.Sprintf("/attempt/%s/%s", id, stage))
	return sendAttempt(req)
}

func sendAttempt(req *gentleman.Request) (schema.Attempt, error) {
	resp, err := req.Send()
	if err != nil {
		return schema.Attempt{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		respErr := schema.RespErr{}
		if err := resp.JSON(&respErr); err == nil && respErr.Err != "" {
			return schema.Attempt{}, respErr
		}
		return schema.Attempt{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	a := schema.Attempt{}
	err = resp.JSON(&a)
	return a, err
}

func (c *Client) Renew(label string, years int) (schema.RegistrationResult, error) {
	req := c.SCli.Post()
	req.Path(fmt.Sprintf("/renew/%s", label))
	req.AddQuery("years", fmt.Sprintf("%d", years))
	resp, err := req.Send()
	if err != nil {
		return schema.RegistrationResult{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.RegistrationResult{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	result := schema.RegistrationResult{}
	err = resp.JSON(&result)
	return result, err
}

func (c *Client) AddWatch(label, owner string) error {
	req := c.SCli.Post()
	req.Path("/watch")
	req.Use(body.JSON(schema.WatchReq{Label: label, Owner: owner}))
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	return nil
}

func (c *Client) GetWatch(label string) (schema.WatchedDomain, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/watch/%s", label))
	resp, err := req.Send()
	if err != nil {
		return schema.WatchedDomain{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.WatchedDomain{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	wd := schema.WatchedDomain{}
	err = resp.JSON(&wd)
	return wd, err
}

func (c *Client) RemoveWatch(label string) error {
	req := c.SCli.Delete()
	req.Path(fmt.Sprintf("/watch/%s", label))
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	return nil
}

func (c *Client) Activities(owner string, cursorId, num int) ([]schema.Activity, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/activities/%s", owner))
	req.AddQuery("cursorId", fmt.Sprintf("%d", cursorId))
	req.AddQuery("num", fmt.Sprintf("%d", num))
	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	activities := make([]schema.Activity, 0)
	err = resp.JSON(&activities)
	return activities, err
}

func (c *Client) Registrations(owner string) ([]schema.RegistrationRecord, error) {
	req := c.SCli.Get()
	req.Path(fmt.Sprintf("/registrations/%s", owner))
	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	records := make([]schema.RegistrationRecord, 0)
	err = resp.JSON(&records)
	return records, err
}

func (c *Client) Chat(message, owner string) (schema.ChatResp, error) {
	req := c.SCli.Post()
	req.Path("/chat")
	if owner != "" {
		req.AddQuery("owner", owner)
	}
	req.Use(body.JSON(schema.ChatReq{Message: message}))
	resp, err := req.Send()
	if err != nil {
		return schema.ChatResp{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.ChatResp{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	cr := schema.ChatResp{}
	err = resp.JSON(&cr)
	return cr, err
}
