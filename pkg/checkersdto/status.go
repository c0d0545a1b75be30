package checkersdto

type Status struct {
	QueueSize int      `json:"queueSize"`
	LiveGames int      `json:"liveGames"`
	Sessions  int      `json:"sessions"`
	Players   []string `json:"players,omitempty"`
	UptimeSec int64    `json:"uptimeSec"`
}
