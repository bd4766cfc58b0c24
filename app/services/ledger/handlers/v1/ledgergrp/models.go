package ledgergrp

import "github.com/csbeno10/Kripto/foundation/blockchain/block"

type newBlock struct {
	Transactions []string `json:"transactions" validate:"required,min=1,max=1000,dive,required"`
}

type newProof struct {
	Rounds int `json:"rounds" validate:"omitempty,min=1,max=1024"`
}

type status struct {
	Height     int    `json:"height"`
	LatestHash string `json:"latest_hash"`
	Difficulty int    `json:"difficulty"`
	Hash       string `json:"hash"`
	Encoding   string `json:"encoding"`
	Signer     string `json:"signer"`
	Listeners  int    `json:"listeners"`
}

type blockList struct {
	Total  int           `json:"total"`
	Blocks []block.Block `json:"blocks"`
}
