package mock

import (
	"math/rand"
	"strconv"

	"github.com/Borislavv/shared-handle/pkg/model"
)

const (
	minBodyLen = 8
	maxBodyLen = 1024
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRandomResources builds num resources with random payloads for
// tests and benchmarks.
func GenerateRandomResources(num int) []*model.Resource {
	list := make([]*model.Resource, 0, num)
	for i := 0; i < num; i++ {
		list = append(list, model.NewResource(
			"resource_"+strconv.Itoa(i),
			[]byte(GenerateRandomString()),
			"application/json",
		))
	}
	return list
}

func GenerateRandomString() string {
	n := minBodyLen + rand.Intn(maxBodyLen-minBodyLen)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
