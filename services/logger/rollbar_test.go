package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
	"github.com/trezcool/attendtrack/core/user"
)

func newTestLogger() (*RollbarLogger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	l := NewRollbarLogger(log.New(buf, "TEST : ", 0), core.NewTestConfig())
	l.Enable(false)
	return l, buf
}

func TestRollbarLogger_prepare(t *testing.T) {
	l, _ := newTestLogger()
	acc := user.Account{ID: 3, Username: "jdoe", Email: "jdoe@college.com"}
	err := errors.New("boom")
	extras := map[string]interface{}{"student_id": 7}

	tests := []struct {
		name string
		args []interface{}
		want []interface{}
	}{
		{name: "no args", want: []interface{}{"msg"}},
		{name: "account is not forwarded", args: []interface{}{err, acc}, want: []interface{}{"msg", err}},
		{
			name: "identity is not forwarded",
			args: []interface{}{access.NewIdentity(acc), extras},
			want: []interface{}{"msg", extras},
		},
		{
			name: "anonymous identity is forwarded",
			args: []interface{}{access.Identity{}},
			want: []interface{}{"msg", access.Identity{}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, l.prepare("msg", tc.args))
		})
	}
}

func TestRollbarLogger_Info(t *testing.T) {
	l, buf := newTestLogger()
	acc := user.Account{ID: 3, Username: "jdoe", Email: "jdoe@college.com"}

	l.Info("attendance marked", acc, 12)

	assert.Equal(t, "TEST : attendance marked\nTEST : account: jdoe (3)\nTEST : 12\n", buf.String())
}
