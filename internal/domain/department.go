package domain

// Department is the organizational unit a user belongs to.
type Department string

const (
	DepartmentEngineering Department = "Engineering"
	DepartmentHR          Department = "HR"
	DepartmentFinance     Department = "Finance"
	DepartmentSales       Department = "Sales"
	DepartmentMarketing   Department = "Marketing"
	DepartmentOperations  Department = "Operations"
	DepartmentLegal       Department = "Legal"
	DepartmentIT          Department = "IT"
)

// Departments lists every known department.
var Departments = []Department{
	DepartmentEngineering,
	DepartmentHR,
	DepartmentFinance,
	DepartmentSales,
	DepartmentMarketing,
	DepartmentOperations,
	DepartmentLegal,
	DepartmentIT,
}

// Valid reports whether d is a known department.
func (d Department) Valid() bool {
	for _, candidate := range Departments {
		if candidate == d {
			return true
		}
	}
	return false
}
