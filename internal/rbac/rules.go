package rbac

// Simple default policy. Students take exams and browse the syllabus;
// admins additionally manage content.
var RolePermissions = map[string][]string{
	"student": {
		"content:view",
		"content:download",
		"exam:take",
		"exam:results",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
