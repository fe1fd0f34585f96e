package contracts

// ValidationError reports a malformed command. Services turn it into an
// invalid-argument reply and the gateway into a 400 response.
type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}
