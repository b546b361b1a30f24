package sdk

// SetResponseLimit overrides the response body size limit.
func (c *RequestClient) SetResponseLimit(n int64) {
	c.maxBody = n
}
