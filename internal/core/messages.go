package core

import "github.com/valter-silva-au/supportbot/pkg/models"

// Scripted message pools. Entries may carry anchor markup; see ParseMarkup.
var (
	WelcomeMessages = []string{
		"Hello! I'm the Thoughtful AI Support Agent. How can I help you today?",
		"Welcome to Thoughtful AI support! I'm here to answer your questions about our healthcare agents.",
		"Hi there! I'm your Thoughtful AI assistant. What would you like to know about our healthcare automation solutions?",
	}

	WelcomeBackMessages = []string{
		"Welcome back! How can I assist you with Thoughtful AI's healthcare agents today?",
		"Good to see you again! What questions do you have about our healthcare automation solutions?",
		"Hello again! I'm here to help with any questions about Thoughtful AI's healthcare agents.",
	}

	CheckInMessages = []string{
		"Is there anything else you'd like to know about Thoughtful AI's healthcare agents?",
		"Do you have any other questions I can help with?",
		"Is there something specific about our healthcare automation solutions you're interested in?",
	}

	FarewellMessages = []string{
		"Thank you for chatting with Thoughtful AI Support. Have a great day!",
		"It was a pleasure assisting you. Feel free to return if you have more questions!",
		"Thanks for your interest in Thoughtful AI. Don't hesitate to reach out if you need further assistance!",
	}

	ResourceSuggestions = []string{
		"I don't have that specific information in my knowledge base. For more details, please visit our documentation at <a href='https://docs.thoughtful.ai' target='_blank' rel='noopener noreferrer'>docs.thoughtful.ai</a> or contact our support team at <a href='mailto:support@thoughtful.ai'>support@thoughtful.ai</a>.",
		"That's beyond my current knowledge. For assistance with this specific question, please reach out to our support team at <a href='mailto:support@thoughtful.ai'>support@thoughtful.ai</a> or call us at 1-800-THOUGHTFUL.",
		"I'm not able to provide that information. You can find more details about our healthcare agents on our <a href='https://www.thoughtful.ai/agents' target='_blank' rel='noopener noreferrer'>agents page</a> or by contacting our team directly.",
		"I don't have that information available. For detailed answers about this topic, please consult our <a href='https://www.thoughtful.ai/faq' target='_blank' rel='noopener noreferrer'>FAQ page</a> or contact our customer support.",
	}
)

// Fixed replies of the fallback generator.
const (
	GreetingReply = "Hello! I'm here to help with questions about Thoughtful AI's healthcare agents. What would you like to know?"
	ThanksReply   = "You're welcome! Is there anything else you'd like to know about Thoughtful AI's healthcare agents?"
	HelpReply     = "I can provide information about Thoughtful AI's healthcare agents like EVA (eligibility verification), CAM (claims processing), and PHIL (payment posting). What would you like to know about these agents?"
	ContactReply  = "You can contact our support team via email at <a href='mailto:support@thoughtful.ai'>support@thoughtful.ai</a> or by phone at 1-800-THOUGHTFUL. Our team is available Monday through Friday, 9am to 5pm Eastern Time."

	AlreadySharedReply = "I've shared some resources that might help. Is there something specific about our healthcare agents (EVA, CAM, or PHIL) that you'd like to know?"

	DetailedResourceReply = "I don't have that specific information in my knowledge base. For detailed information about this topic, please visit our comprehensive documentation at <a href='https://docs.thoughtful.ai' target='_blank' rel='noopener noreferrer'>docs.thoughtful.ai</a> or contact our expert support team at <a href='mailto:support@thoughtful.ai'>support@thoughtful.ai</a>."
	WebsiteResourceReply  = "I don't have that information in my knowledge base. You can learn more on our <a href='https://www.thoughtful.ai' target='_blank' rel='noopener noreferrer'>website</a> or contact our support team at <a href='mailto:support@thoughtful.ai'>support@thoughtful.ai</a>."

	// agentResourceFormat: %[1]s is the upper-case agent name, %[2]s the
	// lower-case one used in the page path.
	agentResourceFormat = "I don't have that specific information about %[1]s. You can learn more about %[1]s on our <a href='https://www.thoughtful.ai/agents/%[2]s' target='_blank' rel='noopener noreferrer'>%[1]s page</a> or contact our support team at <a href='mailto:support@thoughtful.ai'>support@thoughtful.ai</a>."

	GeneratorFailureReply = "I'm specifically trained on Thoughtful AI's healthcare agents. For other questions, please visit our website at https://www.thoughtful.ai or contact our support team at support@thoughtful.ai."
	ApologyReply          = "I'm sorry, I encountered an error processing your request. Please try again or contact our support team at support@thoughtful.ai."
)

// followUpElaborations answer "tell me more" for topics with a known story.
var followUpElaborations = map[models.Topic]string{
	models.TopicEligibility: "EVA, our eligibility verification agent, connects with payer systems to verify patient insurance in real-time. It can check coverage details, co-pays, deductibles, and authorization requirements, significantly reducing manual work and errors.",
	models.TopicClaims:      "CAM, our claims processing agent, handles the entire claims lifecycle. It can validate claim information, check for errors before submission, track claim status, and even help with denial management.",
	models.TopicPayments:    "PHIL, our payment posting agent, automatically reconciles payments with claims, handles EOBs and ERAs, identifies underpayments, and updates your financial systems with accurate payment information.",
	models.TopicAgents:      "Our AI agents work together to automate the entire revenue cycle. They're designed to integrate with your existing systems and can be customized to your specific workflows and requirements.",
	models.TopicBenefits:    "The key benefits of our agents include reduced operational costs, faster reimbursements, fewer denials, improved cash flow, and allowing your staff to focus on higher-value tasks instead of routine processing.",
}

// agentTeasers point an unmatched agent-topic question at the right agent.
var agentTeasers = map[models.Topic]string{
	models.TopicEligibility: "While I don't have specific information about that, I can tell you that our eligibility verification agent (EVA) automates insurance verification in real-time. Would you like to know more about EVA?",
	models.TopicClaims:      "I don't have specific details on that, but our claims processing agent (CAM) streamlines claims submission and management. Would you like to learn more about CAM?",
	models.TopicPayments:    "I don't have that specific information, but our payment posting agent (PHIL) automates payment reconciliation and posting. Would you like to know more about PHIL?",
}

// FollowUpElaboration returns the scripted elaboration for topic, if any.
func FollowUpElaboration(topic models.Topic) (string, bool) {
	s, ok := followUpElaborations[topic]
	return s, ok
}

// Degradation messages, keyed by the kind of failure.
const (
	degradedConnection = "I'm having trouble connecting to our knowledge base. Let me try to help with what I know, or please try again in a moment."
	degradedTimeout    = "It's taking longer than expected to process your request. Let me try a simpler approach to help you."
	degradedData       = "I'm having trouble processing some information. Let me try to answer more generally."
	degradedDefault    = "I encountered a small hiccup while processing your request. Let me try to help in a different way."
)
