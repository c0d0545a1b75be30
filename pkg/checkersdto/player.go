package checkersdto

type Player struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}
