package commands

// ConfigShowCommand returns the effective configuration.
func ConfigShowCommand() *CommandResponse {
	return NewSuccessResponse(GetConfig())
}
