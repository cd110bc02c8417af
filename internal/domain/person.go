package domain

import (
	"fmt"
	"strings"
)

type PersonID string

type Person struct {
	ID   PersonID `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`
}

func (p Person) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return string(p.ID)
}

type Roster []Person

func (r Roster) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("%w: roster is empty", ErrInvalidConfig)
	}

	seen := make(map[PersonID]struct{}, len(r))
	for _, person := range r {
		id := PersonID(strings.TrimSpace(string(person.ID)))
		if id == "" {
			return fmt.Errorf("%w: roster entry %q has no email", ErrInvalidConfig, person.Name)
		}
		if strings.ContainsAny(string(id), " \t\r\n") {
			return fmt.Errorf("%w: roster email %q contains whitespace", ErrInvalidConfig, id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: duplicate roster email %q", ErrInvalidConfig, id)
		}
		seen[id] = struct{}{}
	}

	return nil
}

func (r Roster) IDs() []PersonID {
	ids := make([]PersonID, 0, len(r))
	for _, person := range r {
		ids = append(ids, person.ID)
	}
	return ids
}

type Directory map[PersonID]Person

func NewDirectory(roster Roster) Directory {
	dir := make(Directory, len(roster))
	for _, person := range roster {
		dir[person.ID] = person
	}
	return dir
}

func (d Directory) People(ids []PersonID) []Person {
	people := make([]Person, 0, len(ids))
	for _, id := range ids {
		person, ok := d[id]
		if !ok {
			person = Person{ID: id}
		}
		people = append(people, person)
	}
	return people
}
