package partners_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alvarodevdoo/erp/internal/masterdata/partners"
	"github.com/alvarodevdoo/erp/internal/shared"
)

var (
	companyA = uuid.MustParse("0b6f7c2e-9a43-4a8e-8c1f-1d1d2f4a0a01")
	companyB = uuid.MustParse("0b6f7c2e-9a43-4a8e-8c1f-1d1d2f4a0a02")
)

func TestService_Create(t *testing.T) {
	type args struct {
		principal shared.Principal
		input     partners.PartnerInput
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *partners.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{
				principal: shared.Principal{CompanyID: companyA},
				input:     partners.PartnerInput{Type: partners.TypeCustomer, Name: " Padaria Sol ", Document: "123.456.789-09"},
			},
			setupMock: func(m *partners.MockRepository) {
				m.EXPECT().NameExists(gomock.Any(), companyA, "Padaria Sol", uuid.Nil).Return(false, nil)
				m.EXPECT().DocumentExists(gomock.Any(), companyA, "12345678909", uuid.Nil).Return(false, nil)
				m.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, p *partners.Partner) error {
						if p.CompanyID != companyA || !p.IsActive {
							return errors.New("unexpected partner")
						}
						return nil
					})
			},
		},
		{
			name: "DuplicateNameSameCompany",
			args: args{
				principal: shared.Principal{CompanyID: companyA},
				input:     partners.PartnerInput{Type: partners.TypeSupplier, Name: "Papelaria Central"},
			},
			setupMock: func(m *partners.MockRepository) {
				m.EXPECT().NameExists(gomock.Any(), companyA, "Papelaria Central", uuid.Nil).Return(true, nil)
			},
			wantErr: shared.ErrConflict,
		},
		{
			name: "SameNameOtherCompany",
			args: args{
				principal: shared.Principal{CompanyID: companyB},
				input:     partners.PartnerInput{Type: partners.TypeSupplier, Name: "Papelaria Central"},
			},
			setupMock: func(m *partners.MockRepository) {
				m.EXPECT().NameExists(gomock.Any(), companyB, "Papelaria Central", uuid.Nil).Return(false, nil)
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "DuplicateDocument",
			args: args{
				principal: shared.Principal{CompanyID: companyA},
				input:     partners.PartnerInput{Type: partners.TypeBoth, Name: "Nova", Document: "11.222.333/0001-81"},
			},
			setupMock: func(m *partners.MockRepository) {
				m.EXPECT().NameExists(gomock.Any(), companyA, "Nova", uuid.Nil).Return(false, nil)
				m.EXPECT().DocumentExists(gomock.Any(), companyA, "11222333000181", uuid.Nil).Return(true, nil)
			},
			wantErr: shared.ErrConflict,
		},
		{
			// the name check passes but the unique index rejects a concurrent insert
			name: "DuplicateNameRace",
			args: args{
				principal: shared.Principal{CompanyID: companyA},
				input:     partners.PartnerInput{Type: partners.TypeCustomer, Name: "Papelaria Central"},
			},
			setupMock: func(m *partners.MockRepository) {
				m.EXPECT().NameExists(gomock.Any(), companyA, "Papelaria Central", uuid.Nil).Return(false, nil)
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(shared.Conflict("partner %q already exists", "Papelaria Central"))
			},
			wantErr: shared.ErrConflict,
		},
		{
			name: "RepoError",
			args: args{
				principal: shared.Principal{CompanyID: companyA},
				input:     partners.PartnerInput{Type: partners.TypeCustomer, Name: "Falha"},
			},
			setupMock: func(m *partners.MockRepository) {
				m.EXPECT().NameExists(gomock.Any(), companyA, "Falha", uuid.Nil).Return(false, nil)
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := partners.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := partners.NewService(repo, nil, nil)
			got, err := svc.Create(context.Background(), tt.args.principal, tt.args.input)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, got)
				if errors.Is(tt.wantErr, shared.ErrConflict) {
					assert.ErrorIs(t, err, shared.ErrConflict)
					assert.Equal(t, 409, shared.StatusOf(err))
				}
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
			assert.Equal(t, tt.args.principal.CompanyID, got.CompanyID)
		})
	}
}

func TestService_Update(t *testing.T) {
	id := uuid.New()
	current := &partners.Partner{ID: id, CompanyID: companyA, Type: partners.TypeCustomer, Name: "Antigo", IsActive: true}

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := partners.NewMockRepository(ctrl)
		repo.EXPECT().Get(gomock.Any(), companyA, id).Return(current, nil)
		repo.EXPECT().NameExists(gomock.Any(), companyA, "Novo", id).Return(false, nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		svc := partners.NewService(repo, nil, nil)
		got, err := svc.Update(context.Background(), shared.Principal{CompanyID: companyA}, id,
			partners.PartnerInput{Type: partners.TypeBoth, Name: "Novo"})
		require.NoError(t, err)
		assert.Equal(t, partners.TypeBoth, got.Type)
		assert.True(t, got.IsActive)
	})

	t.Run("NotFound", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := partners.NewMockRepository(ctrl)
		repo.EXPECT().Get(gomock.Any(), companyB, id).Return(nil, shared.NotFound("partner"))

		svc := partners.NewService(repo, nil, nil)
		_, err := svc.Update(context.Background(), shared.Principal{CompanyID: companyB}, id,
			partners.PartnerInput{Type: partners.TypeBoth, Name: "Novo"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestService_Restore(t *testing.T) {
	id := uuid.New()

	t.Run("NameTaken", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := partners.NewMockRepository(ctrl)
		repo.EXPECT().Get(gomock.Any(), companyA, id).Return(&partners.Partner{ID: id, Name: "Sol"}, nil)
		repo.EXPECT().NameExists(gomock.Any(), companyA, "Sol", id).Return(true, nil)

		svc := partners.NewService(repo, nil, nil)
		_, err := svc.Restore(context.Background(), shared.Principal{CompanyID: companyA}, id)
		assert.ErrorIs(t, err, shared.ErrConflict)
	})

	t.Run("NameTakenConcurrently", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := partners.NewMockRepository(ctrl)
		repo.EXPECT().Get(gomock.Any(), companyA, id).Return(&partners.Partner{ID: id, Name: "Sol"}, nil)
		repo.EXPECT().NameExists(gomock.Any(), companyA, "Sol", id).Return(false, nil)
		repo.EXPECT().SetActive(gomock.Any(), companyA, id, true).
			Return(shared.Conflict("an active partner with the same name already exists"))

		svc := partners.NewService(repo, nil, nil)
		_, err := svc.Restore(context.Background(), shared.Principal{CompanyID: companyA}, id)
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.Equal(t, 409, shared.StatusOf(err))
	})

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := partners.NewMockRepository(ctrl)
		repo.EXPECT().Get(gomock.Any(), companyA, id).Return(&partners.Partner{ID: id, Name: "Sol"}, nil)
		repo.EXPECT().NameExists(gomock.Any(), companyA, "Sol", id).Return(false, nil)
		repo.EXPECT().SetActive(gomock.Any(), companyA, id, true).Return(nil)

		svc := partners.NewService(repo, nil, nil)
		got, err := svc.Restore(context.Background(), shared.Principal{CompanyID: companyA}, id)
		require.NoError(t, err)
		assert.True(t, got.IsActive)
	})
}

func TestService_Delete(t *testing.T) {
	id := uuid.New()
	ctrl := gomock.NewController(t)
	repo := partners.NewMockRepository(ctrl)
	repo.EXPECT().SetActive(gomock.Any(), companyA, id, false).Return(shared.NotFound("partner"))

	svc := partners.NewService(repo, nil, nil)
	err := svc.Delete(context.Background(), shared.Principal{CompanyID: companyA}, id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := partners.NewMockRepository(ctrl)
	filter := partners.ListFilter{ListFilters: shared.ListFilters{Page: 2, Limit: 1}, Type: partners.TypeCustomer}
	repo.EXPECT().
		List(gomock.Any(), companyA, filter).
		Return([]partners.Partner{{ID: uuid.New()}}, 3, nil)

	svc := partners.NewService(repo, nil, nil)
	got, page, err := svc.List(context.Background(), shared.Principal{CompanyID: companyA}, filter)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, shared.Pagination{Page: 2, Limit: 1, Total: 3, TotalPages: 3}, page)
}
