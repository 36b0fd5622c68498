package model

type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Hints    []string `json:"hints"`
	IsActive bool     `json:"isActive"`
}
