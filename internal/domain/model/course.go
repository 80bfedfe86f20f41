package model

// Course is a single offering of a course in a given year and semester.
type Course struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	CodeID     string  `json:"code_id"`
	Credit     float64 `json:"credit"`
	Department string  `json:"department"`
	CampusName string  `json:"campus_name"`
	Teachers   string  `json:"teachers"`
	MaxStudent int     `json:"max_student"`
	WeekHour   int     `json:"week_hour"`
	Year       int     `json:"year"`
	Semester   int     `json:"semester"`
}

// CourseGroup collects every offering sharing a course code.
type CourseGroup struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Code       string   `json:"code"`
	Department string   `json:"department"`
	CampusName string   `json:"campus_name"`
	Courses    []Course `json:"course_list"`
}

// CourseCache pairs the course catalog with the content hash it was fetched
// under. Groups may be reused only while the server still reports Hash.
type CourseCache struct {
	Hash   string        `json:"hash"`
	Groups []CourseGroup `json:"courses"`
}
