package profile

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core"
)

type Student struct {
	ID         int64      `json:"id"`
	AccountID  int64      `json:"account_id"`
	RollNumber string     `json:"roll_number"`
	FullName   string     `json:"full_name"`
	ClassName  string     `json:"class_name"`
	Phone      string     `json:"phone"`
	ParentID   null.Int64 `json:"parent_id"`
}

type Teacher struct {
	ID         int64  `json:"id"`
	AccountID  int64  `json:"account_id"`
	FullName   string `json:"full_name"`
	Department string `json:"department"` // class taught
	Subject    string `json:"subject"`
	Phone      string `json:"phone"`
}

type Parent struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type NewStudent struct {
	RollNumber string `json:"roll_number" validate:"required,max=20,alphanum_"`
	FullName   string `json:"full_name" validate:"notblank,max=100"`
	ClassName  string `json:"class_name" validate:"notblank,max=50"`
	Phone      string `json:"phone" validate:"max=15"`
	ParentID   int64  `json:"parent_id"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.RollNumber = core.CleanString(ns.RollNumber, true /* lower */)
	ns.FullName = core.CleanString(ns.FullName)
	ns.ClassName = core.CleanString(ns.ClassName)
	ns.Phone = core.CleanString(ns.Phone)
	return validate.Struct(ns)
}

type NewTeacher struct {
	FullName   string `json:"full_name" validate:"notblank,max=100"`
	Department string `json:"department" validate:"notblank,max=50"`
	Subject    string `json:"subject" validate:"notblank,max=50"`
	Phone      string `json:"phone" validate:"max=15"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.FullName = core.CleanString(nt.FullName)
	nt.Department = core.CleanString(nt.Department)
	nt.Subject = core.CleanString(nt.Subject)
	nt.Phone = core.CleanString(nt.Phone)
	return validate.Struct(nt)
}

type NewParent struct {
	FullName string `json:"full_name" validate:"notblank,max=100"`
	Phone    string `json:"phone" validate:"max=15"`
	Email    string `json:"email" validate:"required,email,max=120"`
}

func (np *NewParent) Validate(validate *validator.Validate) error {
	np.FullName = core.CleanString(np.FullName)
	np.Phone = core.CleanString(np.Phone)
	np.Email = core.CleanString(np.Email, true /* lower */)
	return validate.Struct(np)
}

type GetFilter struct {
	ID         int64
	AccountID  int64
	RollNumber string
	Email      string
}

// StudentFilter applies AND operation on its non-zero fields.
type StudentFilter struct {
	ClassName string
	ParentID  int64
	IDs       []int64
}
