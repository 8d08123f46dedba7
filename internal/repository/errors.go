package repository

import "errors"

var (
	// ErrMatchAlreadySettled 조건부 UPDATE가 pending 행을 찾지 못함
	ErrMatchAlreadySettled = errors.New("match already settled")
	ErrSeasonNotFound      = errors.New("season not found")
)
