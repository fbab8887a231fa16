package factories

import (
	"math/rand"

	"github.com/chrisdamba/cleanbotsim/internal/models"
	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"
)

var robotSeries = []string{"RX", "VX", "DustPro", "Sweep", "Mop"}

// RobotFactory hands out display profiles for cleaners. Names and model codes
// come from a faker seeded independently of the simulation's random source, so
// naming never perturbs a replay.
type RobotFactory struct {
	fake faker.Faker
}

func NewRobotFactory(seed int64) *RobotFactory {
	return &RobotFactory{fake: faker.NewWithSeed(rand.NewSource(seed))}
}

func (rf *RobotFactory) CreateProfile() models.RobotProfile {
	return models.RobotProfile{
		Name:         rf.fake.Person().FirstName(),
		ModelCode:    rf.fake.RandomStringElement(robotSeries) + "-" + rf.fake.Numerify("###"),
		SerialNumber: cuid.New(),
	}
}

// ProfileFunc returns a lookup that lazily creates one profile per cleaner id.
func (rf *RobotFactory) ProfileFunc() func(id int) models.RobotProfile {
	profiles := make(map[int]models.RobotProfile)
	return func(id int) models.RobotProfile {
		if p, ok := profiles[id]; ok {
			return p
		}
		p := rf.CreateProfile()
		profiles[id] = p
		return p
	}
}
