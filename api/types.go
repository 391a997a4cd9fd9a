package api

import (
	"net/url"
	"strconv"
)

// ScoreState reports whether WHOOP has finished scoring a record.
type ScoreState string

const (
	ScoreStateScored     ScoreState = "SCORED"
	ScoreStatePending    ScoreState = "PENDING_SCORE"
	ScoreStateUnscorable ScoreState = "UNSCORABLE"
)

type CycleScore struct {
	Strain           float64 `json:"strain"              yaml:"strain"`
	Kilojoule        float64 `json:"kilojoule"           yaml:"kilojoule"`
	AverageHeartRate int     `json:"average_heart_rate"  yaml:"average_heart_rate"`
	MaxHeartRate     int     `json:"max_heart_rate"      yaml:"max_heart_rate"`
}

// Cycle is one physiological day.
type Cycle struct {
	ID             int64       `json:"id"                yaml:"id"`
	UserID         int64       `json:"user_id"           yaml:"user_id"`
	CreatedAt      string      `json:"created_at"        yaml:"created_at"`
	UpdatedAt      string      `json:"updated_at"        yaml:"updated_at"`
	Start          string      `json:"start"             yaml:"start"`
	End            string      `json:"end,omitempty"     yaml:"end,omitempty"`
	TimezoneOffset string      `json:"timezone_offset"   yaml:"timezone_offset"`
	ScoreState     ScoreState  `json:"score_state"       yaml:"score_state"`
	Score          *CycleScore `json:"score,omitempty"   yaml:"score,omitempty"`
}

type RecoveryScore struct {
	UserCalibrating  bool     `json:"user_calibrating"             yaml:"user_calibrating"`
	RecoveryScore    float64  `json:"recovery_score"               yaml:"recovery_score"`
	RestingHeartRate float64  `json:"resting_heart_rate"           yaml:"resting_heart_rate"`
	HRVRMSSDMilli    float64  `json:"hrv_rmssd_milli"              yaml:"hrv_rmssd_milli"`
	SpO2Percentage   *float64 `json:"spo2_percentage,omitempty"    yaml:"spo2_percentage,omitempty"`
	SkinTempCelsius  *float64 `json:"skin_temp_celsius,omitempty"  yaml:"skin_temp_celsius,omitempty"`
}

// Recovery is the morning recovery score tied to a cycle.
type Recovery struct {
	CycleID    int64          `json:"cycle_id"         yaml:"cycle_id"`
	SleepID    string         `json:"sleep_id"         yaml:"sleep_id"`
	UserID     int64          `json:"user_id"          yaml:"user_id"`
	CreatedAt  string         `json:"created_at"       yaml:"created_at"`
	UpdatedAt  string         `json:"updated_at"       yaml:"updated_at"`
	ScoreState ScoreState     `json:"score_state"      yaml:"score_state"`
	Score      *RecoveryScore `json:"score,omitempty"  yaml:"score,omitempty"`
}

type SleepStageSummary struct {
	TotalInBedTimeMilli         int64 `json:"total_in_bed_time_milli"          yaml:"total_in_bed_time_milli"`
	TotalAwakeTimeMilli         int64 `json:"total_awake_time_milli"           yaml:"total_awake_time_milli"`
	TotalNoDataTimeMilli        int64 `json:"total_no_data_time_milli"         yaml:"total_no_data_time_milli"`
	TotalLightSleepTimeMilli    int64 `json:"total_light_sleep_time_milli"     yaml:"total_light_sleep_time_milli"`
	TotalSlowWaveSleepTimeMilli int64 `json:"total_slow_wave_sleep_time_milli" yaml:"total_slow_wave_sleep_time_milli"`
	TotalREMSleepTimeMilli      int64 `json:"total_rem_sleep_time_milli"       yaml:"total_rem_sleep_time_milli"`
	SleepCycleCount             int   `json:"sleep_cycle_count"                yaml:"sleep_cycle_count"`
	DisturbanceCount            int   `json:"disturbance_count"                yaml:"disturbance_count"`
}

type SleepNeeded struct {
	BaselineMilli             int64 `json:"baseline_milli"                yaml:"baseline_milli"`
	NeedFromSleepDebtMilli    int64 `json:"need_from_sleep_debt_milli"    yaml:"need_from_sleep_debt_milli"`
	NeedFromRecentStrainMilli int64 `json:"need_from_recent_strain_milli" yaml:"need_from_recent_strain_milli"`
	NeedFromRecentNapMilli    int64 `json:"need_from_recent_nap_milli"    yaml:"need_from_recent_nap_milli"`
}

type SleepScore struct {
	StageSummary               SleepStageSummary `json:"stage_summary"                          yaml:"stage_summary"`
	SleepNeeded                SleepNeeded       `json:"sleep_needed"                           yaml:"sleep_needed"`
	RespiratoryRate            *float64          `json:"respiratory_rate,omitempty"             yaml:"respiratory_rate,omitempty"`
	SleepPerformancePercentage *float64          `json:"sleep_performance_percentage,omitempty" yaml:"sleep_performance_percentage,omitempty"`
	SleepConsistencyPercentage *float64          `json:"sleep_consistency_percentage,omitempty" yaml:"sleep_consistency_percentage,omitempty"`
	SleepEfficiencyPercentage  *float64          `json:"sleep_efficiency_percentage,omitempty"  yaml:"sleep_efficiency_percentage,omitempty"`
}

// Sleep is one sleep or nap.
type Sleep struct {
	ID             string      `json:"id"               yaml:"id"`
	CycleID        int64       `json:"cycle_id"         yaml:"cycle_id"`
	UserID         int64       `json:"user_id"          yaml:"user_id"`
	CreatedAt      string      `json:"created_at"       yaml:"created_at"`
	UpdatedAt      string      `json:"updated_at"       yaml:"updated_at"`
	Start          string      `json:"start"            yaml:"start"`
	End            string      `json:"end"              yaml:"end"`
	TimezoneOffset string      `json:"timezone_offset"  yaml:"timezone_offset"`
	Nap            bool        `json:"nap"              yaml:"nap"`
	ScoreState     ScoreState  `json:"score_state"      yaml:"score_state"`
	Score          *SleepScore `json:"score,omitempty"  yaml:"score,omitempty"`
}

type ZoneDurations struct {
	ZoneZeroMilli  int64 `json:"zone_zero_milli"  yaml:"zone_zero_milli"`
	ZoneOneMilli   int64 `json:"zone_one_milli"   yaml:"zone_one_milli"`
	ZoneTwoMilli   int64 `json:"zone_two_milli"   yaml:"zone_two_milli"`
	ZoneThreeMilli int64 `json:"zone_three_milli" yaml:"zone_three_milli"`
	ZoneFourMilli  int64 `json:"zone_four_milli"  yaml:"zone_four_milli"`
	ZoneFiveMilli  int64 `json:"zone_five_milli"  yaml:"zone_five_milli"`
}

type WorkoutScore struct {
	Strain              float64       `json:"strain"                          yaml:"strain"`
	AverageHeartRate    int           `json:"average_heart_rate"              yaml:"average_heart_rate"`
	MaxHeartRate        int           `json:"max_heart_rate"                  yaml:"max_heart_rate"`
	Kilojoule           float64       `json:"kilojoule"                       yaml:"kilojoule"`
	PercentRecorded     float64       `json:"percent_recorded"                yaml:"percent_recorded"`
	DistanceMeter       *float64      `json:"distance_meter,omitempty"        yaml:"distance_meter,omitempty"`
	AltitudeGainMeter   *float64      `json:"altitude_gain_meter,omitempty"   yaml:"altitude_gain_meter,omitempty"`
	AltitudeChangeMeter *float64      `json:"altitude_change_meter,omitempty" yaml:"altitude_change_meter,omitempty"`
	ZoneDurations       ZoneDurations `json:"zone_durations"                  yaml:"zone_durations"`
}

// Workout is one recorded activity.
type Workout struct {
	ID             string        `json:"id"               yaml:"id"`
	UserID         int64         `json:"user_id"          yaml:"user_id"`
	CreatedAt      string        `json:"created_at"       yaml:"created_at"`
	UpdatedAt      string        `json:"updated_at"       yaml:"updated_at"`
	Start          string        `json:"start"            yaml:"start"`
	End            string        `json:"end"              yaml:"end"`
	TimezoneOffset string        `json:"timezone_offset"  yaml:"timezone_offset"`
	SportName      string        `json:"sport_name"       yaml:"sport_name"`
	ScoreState     ScoreState    `json:"score_state"      yaml:"score_state"`
	Score          *WorkoutScore `json:"score,omitempty"  yaml:"score,omitempty"`
}

// Profile is the basic user profile.
type Profile struct {
	UserID    int64  `json:"user_id"    yaml:"user_id"`
	Email     string `json:"email"      yaml:"email"`
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name"  yaml:"last_name"`
}

// BodyMeasurement is the user's height, weight and max heart rate.
type BodyMeasurement struct {
	HeightMeter    float64 `json:"height_meter"    yaml:"height_meter"`
	WeightKilogram float64 `json:"weight_kilogram" yaml:"weight_kilogram"`
	MaxHeartRate   int     `json:"max_heart_rate"  yaml:"max_heart_rate"`
}

// Page is one page of a collection endpoint.
type Page[T any] struct {
	Records   []T    `json:"records"`
	NextToken string `json:"next_token,omitempty"`
}

// ListParams filters a collection request. Zero values are omitted.
type ListParams struct {
	Limit     int
	Start     string
	End       string
	NextToken string
}

// Values encodes the params as a query string.
func (p ListParams) Values() url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Start != "" {
		q.Set("start", p.Start)
	}
	if p.End != "" {
		q.Set("end", p.End)
	}
	if p.NextToken != "" {
		q.Set("nextToken", p.NextToken)
	}
	return q
}
