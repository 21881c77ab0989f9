package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"hubspace/internal/domain"
)

// AccountID returns the first account the user has access to.
func (c *Client) AccountID(ctx context.Context) (domain.AccountID, error) {
	var me struct {
		AccountAccess []struct {
			Account struct {
				AccountID string `json:"accountId"`
			} `json:"account"`
		} `json:"accountAccess"`
	}
	err := c.do(ctx, request{
		endpoint: "account",
		method:   http.MethodGet,
		url:      c.endpoints.AccountURL,
		host:     c.endpoints.AccountHost,
		out:      &me,
	})
	if err != nil {
		return "", err
	}
	if len(me.AccountAccess) == 0 || me.AccountAccess[0].Account.AccountID == "" {
		return "", fmt.Errorf("%w: unable to extract the account id", ErrInvalidResponse)
	}
	return domain.AccountID(me.AccountAccess[0].Account.AccountID), nil
}

// Metadevices lists every metadevice of account with its state expanded.
func (c *Client) Metadevices(ctx context.Context, account domain.AccountID) ([]json.RawMessage, error) {
	var out []json.RawMessage
	err := c.do(ctx, request{
		endpoint: "metadevices",
		method:   http.MethodGet,
		url:      c.metadevicesURL(account) + "?" + url.Values{"expansions": {"state"}}.Encode(),
		host:     c.endpoints.DataHost,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type stateDoc struct {
	MetadeviceID string         `json:"metadeviceId"`
	Values       []domain.State `json:"values"`
}

// DeviceState reads the current state of one metadevice.
func (c *Client) DeviceState(ctx context.Context, account domain.AccountID, deviceID string) ([]domain.State, error) {
	var out stateDoc
	err := c.do(ctx, request{
		endpoint: "state_get",
		method:   http.MethodGet,
		url:      c.stateURL(account, deviceID),
		host:     c.endpoints.DataHost,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return out.Values, nil
}

// SetDeviceState writes states to one metadevice. lastUpdateTime is stamped
// with the current unix time.
func (c *Client) SetDeviceState(ctx context.Context, account domain.AccountID, deviceID string, states []domain.State) error {
	now := c.now().Unix()
	values := make([]domain.State, len(states))
	for i, s := range states {
		s.LastUpdateTime = now
		values[i] = s
	}
	return c.do(ctx, request{
		endpoint: "state_put",
		method:   http.MethodPut,
		url:      c.stateURL(account, deviceID),
		host:     c.endpoints.DataHost,
		body:     stateDoc{MetadeviceID: deviceID, Values: values},
	})
}

func (c *Client) metadevicesURL(account domain.AccountID) string {
	return c.endpoints.DataURL + "/" + url.PathEscape(account.String()) + "/metadevices"
}

func (c *Client) stateURL(account domain.AccountID, deviceID string) string {
	return c.metadevicesURL(account) + "/" + url.PathEscape(deviceID) + "/state"
}
