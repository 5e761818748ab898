package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Date
		wantErr bool
	}{
		{name: "valid", in: "2024-01-10", want: NewDate(2024, time.January, 10)},
		{name: "padded", in: "  2024-02-29 ", want: NewDate(2024, time.February, 29)},
		{name: "invalid day", in: "2023-02-29", wantErr: true},
		{name: "wrong layout", in: "10/01/2024", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Equal(t, ErrInvalidDate, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v; want %v", got, tt.want)
		})
	}
}

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.January, 10)
	data, err := json.Marshal(struct {
		D Date `json:"d"`
		Z Date `json:"z"`
	}{D: d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d": "2024-01-10", "z": null}`, string(data))

	var got Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-10"`), &got))
	assert.True(t, d.Equal(got))
	assert.Error(t, json.Unmarshal([]byte(`"lol"`), &got))
}

func TestDate_AddDays(t *testing.T) {
	d := NewDate(2024, time.March, 1)
	assert.Equal(t, "2024-02-29", d.AddDays(-1).String())
	assert.Equal(t, "2024-01-31", d.AddDays(-30).String())
}

func TestToday(t *testing.T) {
	NowFunc = func() time.Time {
		return time.Date(2024, time.January, 10, 23, 30, 0, 0, time.FixedZone("WAT", -2*3600))
	}
	defer func() { NowFunc = time.Now }()

	assert.Equal(t, "2024-01-11", Today().String())
}

func TestDBOrdering_String(t *testing.T) {
	assert.Equal(t, "date DESC", OrderBy("date").String())
	assert.Equal(t, "roll_number ASC", OrderBy("roll_number", true).String())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, Round2(200.0/3))
	assert.Equal(t, 70.0, Round2(70))
}

func TestValidationError_Error(t *testing.T) {
	err := NewFieldValidationError("date", ErrInvalidDate.Error())
	assert.Equal(t, ErrInvalidDate.Error(), err.Error())
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "marks: bad", ValidationError{Fields: []FieldError{{Field: "marks", Error: "bad"}}}.Error())
}

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type form struct {
		Username string `json:"username" validate:"required,alphanum_"`
		Name     string `json:"name" validate:"notblank"`
		Date     string `json:"date" validate:"isodate"`
	}

	err := validate.Struct(form{Username: "john doe", Name: "  ", Date: "2024-13-01"})
	require.Error(t, err)
	msgs := make(map[string]string)
	for _, fe := range err.(validator.ValidationErrors) {
		msgs[fe.Field()] = fe.Translate(translator)
	}
	assert.Equal(t, map[string]string{
		"username": alphaNumUnderText,
		"name":     notBlankText,
		"date":     isoDateText,
	}, msgs)

	err = validate.Struct(form{Name: "Jo", Date: "2024-01-10"})
	require.Error(t, err)
	assert.Equal(t, requiredText, err.(validator.ValidationErrors)[0].Translate(translator))

	assert.NoError(t, validate.Struct(form{Username: "john_doe", Name: "Jo", Date: "2024-01-10"}))
}
