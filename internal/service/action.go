package service

import (
	"strings"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
)

// 행동 비용과 효과
const (
	AttackCost = 10
	SkillCost  = 25
	DefendCost = 5

	attackBaseDamage = 30
	attackSpread     = 50 // [30, 79]
	skillBaseDamage  = 50
	skillSpread      = 80 // [50, 129]
	defendHeal       = 20

	EnergyRegen = 10
)

// Action 전투 행동 (Attack, Skill, Defend 중 하나)
type Action interface {
	Kind() models.ActionKind
	Cost() int
	isAction()
}

type Attack struct{}

type Skill struct {
	ID string
}

type Defend struct{}

func (Attack) Kind() models.ActionKind { return models.ActionAttack }
func (Skill) Kind() models.ActionKind  { return models.ActionSkill }
func (Defend) Kind() models.ActionKind { return models.ActionDefend }

func (Attack) Cost() int { return AttackCost }
func (Skill) Cost() int  { return SkillCost }
func (Defend) Cost() int { return DefendCost }

func (Attack) isAction() {}
func (Skill) isAction()  {}
func (Defend) isAction() {}

// ParseAction 입력 경계에서 문자열을 행동으로 변환
func ParseAction(kind, skillID string) (Action, error) {
	switch models.ActionKind(strings.ToLower(strings.TrimSpace(kind))) {
	case models.ActionAttack:
		return Attack{}, nil
	case models.ActionSkill:
		id := strings.TrimSpace(skillID)
		if id == "" {
			return nil, ErrInvalidAction
		}
		return Skill{ID: id}, nil
	case models.ActionDefend:
		return Defend{}, nil
	}
	return nil, ErrInvalidAction
}

// actionEffect 상대에게 주는 피해와 자신의 회복량
type actionEffect struct {
	damage int
	heal   int
}

func resolveEffect(a Action, roller DamageRoller) actionEffect {
	switch a.(type) {
	case Attack:
		return actionEffect{damage: attackBaseDamage + roller.Intn(attackSpread)}
	case Skill:
		return actionEffect{damage: skillBaseDamage + roller.Intn(skillSpread)}
	case Defend:
		return actionEffect{heal: defendHeal}
	}
	return actionEffect{}
}

func skillIDOf(a Action) string {
	if s, ok := a.(Skill); ok {
		return s.ID
	}
	return ""
}
