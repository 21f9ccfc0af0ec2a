package model

// Permission represents a string code for a specific admin action.
type Permission string

const (
	// PermissionCoursesRead allows listing and viewing courses.
	PermissionCoursesRead Permission = "courses:read"

	// PermissionCoursesWrite allows opening course forms, authoring exams and submitting courses.
	PermissionCoursesWrite Permission = "courses:write"

	// PermissionCoursesDelete allows deleting courses.
	PermissionCoursesDelete Permission = "courses:delete"

	// PermissionCoursesPublish allows toggling a course's active status.
	PermissionCoursesPublish Permission = "courses:publish"
)
