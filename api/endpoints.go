package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, out)
}

// GetProfile returns the basic user profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.get(ctx, "/v2/user/profile/basic", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBodyMeasurement returns height, weight and max heart rate.
func (c *Client) GetBodyMeasurement(ctx context.Context) (*BodyMeasurement, error) {
	var b BodyMeasurement
	if err := c.get(ctx, "/v2/user/measurement/body", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// RevokeAccess revokes the token server-side.
func (c *Client) RevokeAccess(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v2/user/access", nil, nil)
}

func (c *Client) ListCycles(ctx context.Context, params ListParams) (*Page[Cycle], error) {
	return list[Cycle](ctx, c, "/v2/cycle", params)
}

func (c *Client) GetCycle(ctx context.Context, cycleID int64) (*Cycle, error) {
	var cy Cycle
	if err := c.get(ctx, cyclePath(cycleID, ""), nil, &cy); err != nil {
		return nil, err
	}
	return &cy, nil
}

// GetCycleSleep returns the sleep that ended the cycle.
func (c *Client) GetCycleSleep(ctx context.Context, cycleID int64) (*Sleep, error) {
	var s Sleep
	if err := c.get(ctx, cyclePath(cycleID, "/sleep"), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetCycleRecovery returns the recovery scored for the cycle.
func (c *Client) GetCycleRecovery(ctx context.Context, cycleID int64) (*Recovery, error) {
	var r Recovery
	if err := c.get(ctx, cyclePath(cycleID, "/recovery"), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) ListRecoveries(ctx context.Context, params ListParams) (*Page[Recovery], error) {
	return list[Recovery](ctx, c, "/v2/recovery", params)
}

func (c *Client) ListSleeps(ctx context.Context, params ListParams) (*Page[Sleep], error) {
	return list[Sleep](ctx, c, "/v2/activity/sleep", params)
}

func (c *Client) GetSleep(ctx context.Context, sleepID string) (*Sleep, error) {
	var s Sleep
	if err := c.get(ctx, "/v2/activity/sleep/"+url.PathEscape(sleepID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ListWorkouts(ctx context.Context, params ListParams) (*Page[Workout], error) {
	return list[Workout](ctx, c, "/v2/activity/workout", params)
}

func (c *Client) GetWorkout(ctx context.Context, workoutID string) (*Workout, error) {
	var w Workout
	if err := c.get(ctx, "/v2/activity/workout/"+url.PathEscape(workoutID), nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func list[T any](ctx context.Context, c *Client, path string, params ListParams) (*Page[T], error) {
	var page Page[T]
	if err := c.get(ctx, path, params.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func cyclePath(id int64, suffix string) string {
	return "/v2/cycle/" + strconv.FormatInt(id, 10) + suffix
}
