package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/school"
)

func (cli *commandLine) addSchool(name, address, phone string) error {
	ctx := context.Background()
	now := time.Now().UTC()

	sch, err := cli.schoolRepo.CreateSchool(ctx, school.School{
		Name:      core.CleanString(name),
		Address:   core.CleanString(address),
		Phone:     core.CleanString(phone),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return err
	}
	fmt.Printf("school created: id=%d name=%q\n", sch.ID, sch.Name)
	return nil
}
