package services

import (
	"context"
	"fmt"
	"html"

	"envie2sortir-backend/config"
	"envie2sortir-backend/logger"
	"envie2sortir-backend/metrics"
	"envie2sortir-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

// SESAPI is the subset of the SES client used to send mail.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// TwilioAPI is the subset of the Twilio REST client used to send SMS.
type TwilioAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// NotificationService sends email through SES and SMS through Twilio and logs each attempt.
// A nil client turns its channel into a log-only no-op.
type NotificationService struct {
	db         *gorm.DB
	ses        SESAPI
	fromEmail  string
	twilio     TwilioAPI
	fromNumber string
}

func NewNotificationService(db *gorm.DB, sesClient SESAPI, fromEmail string, twilioClient TwilioAPI, fromNumber string) *NotificationService {
	return &NotificationService{
		db:         db,
		ses:        sesClient,
		fromEmail:  fromEmail,
		twilio:     twilioClient,
		fromNumber: fromNumber,
	}
}

// NewNotificationServiceFromConfig builds the real SES and Twilio clients when enabled.
func NewNotificationServiceFromConfig(ctx context.Context, db *gorm.DB, cfg config.IntegrationsConfig) (*NotificationService, error) {
	var sesClient SESAPI
	if cfg.AWS.SES.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		sesClient = ses.NewFromConfig(awsCfg)
	}

	var twilioClient TwilioAPI
	if cfg.Twilio.Enabled {
		twilioClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.Twilio.AccountSID,
			Password: cfg.Twilio.AuthToken,
		}).Api
	}

	return NewNotificationService(db, sesClient, cfg.AWS.SES.FromEmail, twilioClient, cfg.Twilio.FromNumber), nil
}

// SendEmail delivers one HTML email.
func (s *NotificationService) SendEmail(ctx context.Context, to, subject, htmlBody, kind string) error {
	var err error
	if s.ses == nil {
		logger.L().Info("email delivery disabled, skipping", map[string]interface{}{"to": to, "subject": subject})
	} else {
		_, err = s.ses.SendEmail(ctx, &ses.SendEmailInput{
			Destination: &types.Destination{
				ToAddresses: []string{to},
			},
			Message: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				},
			},
			Source: aws.String(s.fromEmail),
		})
	}
	s.record(ctx, to, models.ChannelEmail, kind, subject, err)
	return err
}

// SendSMS delivers one text message.
func (s *NotificationService) SendSMS(ctx context.Context, to, body, kind string) error {
	var err error
	if s.twilio == nil {
		logger.L().Info("sms delivery disabled, skipping", map[string]interface{}{"to": to})
	} else {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(s.fromNumber)
		params.SetBody(body)

		var resp *twilioApi.ApiV2010Message
		resp, err = s.twilio.CreateMessage(params)
		if err == nil && resp != nil && resp.Sid != nil {
			logger.L().Debug("sms sent", map[string]interface{}{"to": to, "sid": *resp.Sid})
		}
	}
	s.record(ctx, to, models.ChannelSMS, kind, "", err)
	return err
}

func (s *NotificationService) record(ctx context.Context, to, channel, kind, subject string, sendErr error) {
	status := models.NotificationSent
	errorMsg := ""
	if sendErr != nil {
		status = models.NotificationFailed
		errorMsg = sendErr.Error()
		logger.L().Error("notification failed", map[string]interface{}{"to": to, "channel": channel, "type": kind, "error": sendErr})
	}
	metrics.NotificationsSentTotal.WithLabelValues(channel, status).Inc()

	if s.db == nil {
		return
	}
	entry := models.NotificationLog{
		Recipient:    to,
		Channel:      channel,
		Type:         kind,
		Subject:      subject,
		Status:       status,
		ErrorMessage: errorMsg,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.L().Warn("failed to log notification", map[string]interface{}{"to": to, "error": err})
	}
}

// NotifyEstablishmentReviewed tells the owner about approval or rejection.
// Premium owners with a phone number also get an SMS.
func (s *NotificationService) NotifyEstablishmentReviewed(ctx context.Context, owner *models.Professional, est *models.Establishment) {
	var subject, body, sms string
	name := html.EscapeString(est.Name)
	switch est.Status {
	case models.StatusApproved:
		subject = fmt.Sprintf("Votre établissement %s est en ligne", est.Name)
		body = fmt.Sprintf("<p>Bonjour %s,</p><p>Bonne nouvelle : <strong>%s</strong> a été validé et est désormais visible sur Envie2Sortir.</p>",
			html.EscapeString(owner.FirstName), name)
		sms = fmt.Sprintf("Envie2Sortir : %s a été validé et est en ligne.", est.Name)
	case models.StatusRejected:
		subject = fmt.Sprintf("Votre établissement %s n'a pas été validé", est.Name)
		body = fmt.Sprintf("<p>Bonjour %s,</p><p><strong>%s</strong> n'a pas été validé.</p><p>Motif : %s</p><p>Vous pouvez modifier votre fiche puis la soumettre à nouveau.</p>",
			html.EscapeString(owner.FirstName), name, html.EscapeString(est.RejectionReason))
		sms = fmt.Sprintf("Envie2Sortir : %s n'a pas été validé. Consultez vos emails.", est.Name)
	default:
		return
	}

	kind := "establishment_" + est.Status
	_ = s.SendEmail(ctx, owner.Email, subject, body, kind)
	if owner.IsPremium() && owner.Phone != "" {
		_ = s.SendSMS(ctx, owner.Phone, sms, kind)
	}
}

// SendWaitlistInvite invites a pre-registered professional to sign up.
func (s *NotificationService) SendWaitlistInvite(ctx context.Context, entry *models.WaitlistEntry, signupURL string) error {
	body := fmt.Sprintf("<p>Bonjour %s,</p><p>Les inscriptions sont ouvertes ! Référencez <strong>%s</strong> sur Envie2Sortir :</p><p><a href=\"%s\">Créer mon compte professionnel</a></p>",
		html.EscapeString(entry.FirstName), html.EscapeString(entry.EstablishmentName), html.EscapeString(signupURL))
	return s.SendEmail(ctx, entry.Email, "Votre invitation Envie2Sortir", body, "waitlist_invite")
}
