package graph

import (
	"time"

	"au-electorates/internal/model"
)

// 联邦大选与边界周期的固定对应关系
var schedule = []struct {
	parliament int
	date       string
	epoch      model.Epoch
}{
	{45, "2016-07-02", model.Epoch2016},
	{46, "2019-05-18", model.Epoch2019},
	{47, "2022-05-21", model.EpochFuture},
}

func buildElections(divisions []*model.Division) []*model.Election {
	out := make([]*model.Election, 0, len(schedule))
	for _, s := range schedule {
		d, _ := time.Parse("2006-01-02", s.date)
		e := &model.Election{Parliament: s.parliament, Year: d.Year(), Date: d, Epoch: s.epoch}
		for _, div := range divisions {
			if div.ExistsIn(s.epoch) {
				e.Divisions = append(e.Divisions, div)
			}
		}
		out = append(out, e)
	}
	return out
}

// TryFindElection 按议会届次查找选举
func (g *Graph) TryFindElection(parliament int) (*model.Election, bool) {
	for _, e := range g.elections {
		if e.Parliament == parliament {
			return e, true
		}
	}
	return nil, false
}

func (g *Graph) FindElection(parliament int) (*model.Election, error) {
	if e, ok := g.TryFindElection(parliament); ok {
		return e, nil
	}
	return nil, &model.ElectionNotFoundError{Parliament: parliament}
}

// ElectionFor 返回使用指定边界周期的选举
func (g *Graph) ElectionFor(e model.Epoch) (*model.Election, bool) {
	for _, el := range g.elections {
		if el.Epoch == e {
			return el, true
		}
	}
	return nil, false
}
