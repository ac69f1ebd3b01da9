package rules

// IDTokenWriteRuleID identifies the built-in OIDC token permission rule.
const IDTokenWriteRuleID = "github-actions/id-token-write"

// IDTokenWrite returns the rule that flags workflows granting `id-token: write`.
func IDTokenWrite() *Rule {
	return &Rule{
		ID:               IDTokenWriteRuleID,
		Name:             "id-token: write permission detected",
		ShortDescription: "Workflow grants the id-token: write permission",
		FullDescription: "The 'id-token: write' permission lets a workflow request an OIDC token from the " +
			"platform token service. Any step in the job can exchange that token for cloud " +
			"credentials trusted by the repository, so the grant should be limited to jobs that need it.",
		Severity:  SeverityError,
		Tags:      []string{"security", "github-actions"},
		HelpURI:   "https://docs.github.com/en/actions/security-for-github-actions/security-hardening-your-deployments/about-security-hardening-with-openid-connect",
		Construct: "id-token: write",
		Message:   "Workflow uses '" + ConstructPlaceholder + "' permission which allows requesting OIDC tokens.",
		Matcher:   MustKeyValuePattern("id-token", "write"),
	}
}

// Builtin returns the rules shipped with the scanner, in catalog order.
func Builtin() []*Rule {
	return []*Rule{
		IDTokenWrite(),
	}
}
