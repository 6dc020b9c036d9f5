package rbac

// Default policy. Learners only ever see their own attempts; the admin role
// additionally patches administrative flags and reads any user's history.
var RolePermissions = map[string][]string{
	"student": {
		"test:view",
		"item:view",
		"attempt:submit",
		"attempt:view-own",
	},
	"admin": {
		"*", // everything, including attempt:lock and attempt:view-all
	},
}
